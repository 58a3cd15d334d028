package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	jsonv2 "github.com/go-json-experiment/json"
)

// sessionFile is the JSON session format: a set of cookies plus headers to
// replay on every request. Either field may be omitted.
type sessionFile struct {
	Cookies []sessionCookie   `json:"cookies"`
	Headers map[string]string `json:"headers"`
}

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// loadSession reads a session file and returns the cookies and headers it
// carries. It accepts either the tool's own JSON format or a Netscape-style
// cookie-jar export, distinguishing the two by the first non-whitespace
// byte, matching the original loader's sniff.
func loadSession(path string) ([]*http.Cookie, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read session file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var sf sessionFile
		if err := jsonv2.Unmarshal(data, &sf); err != nil {
			return nil, nil, fmt.Errorf("parse session JSON: %w", err)
		}
		cookies := make([]*http.Cookie, 0, len(sf.Cookies))
		for _, c := range sf.Cookies {
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
		}
		return cookies, sf.Headers, nil
	}

	return parseNetscapeCookies(trimmed), nil, nil
}

// parseNetscapeCookies parses the tab-delimited Netscape cookie-file
// format: domain, include-subdomains flag, path, secure flag, expiry,
// name, value. Malformed or comment lines are skipped.
func parseNetscapeCookies(content string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Name:   fields[5],
			Value:  fields[6],
		})
	}
	return cookies
}
