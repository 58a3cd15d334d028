package main

import (
	"fmt"
	"strconv"
	"strings"
)

// stringSliceFlag implements flag.Value for a flag that may be repeated or
// given as a comma-separated list. Grounded on pkg/input.StringSliceFlag.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			*s = append(*s, v)
		}
	}
	return nil
}

// parseStatusCodes converts a stringSliceFlag's entries into ints, matching
// the CLI's -status-codes contract.
func parseStatusCodes(raw []string) ([]int, error) {
	codes := make([]int, 0, len(raw))
	for _, r := range raw {
		code, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q: %w", r, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
