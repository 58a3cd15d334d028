package fetch

import "crypto/tls"

// insecureTLSConfig disables certificate verification. Recon targets are
// frequently self-signed or use internal CAs; operators opt into this
// explicitly via StaticConfig.SkipTLSVerify / DynamicConfig.SkipTLSVerify.
func insecureTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}
