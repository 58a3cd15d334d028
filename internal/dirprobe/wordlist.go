package dirprobe

// commonPaths is a small built-in wordlist covering the directory names
// that turn up on most web stacks regardless of framework. The teacher's
// wordlists package (pkg/discovery/wordlists) selects framework-specific
// lists via go:embed, but the retrieved copy of this repo ships no .txt
// data files alongside that package, so there is nothing to embed; this
// list plays the same "always try these" role its commonPaths slice did.
var commonPaths = []string{
	"admin", "administrator", "login", "logout", "register", "signup",
	"api", "api/v1", "api/v2", "graphql", "rest",
	"config", "config.json", "config.yml", "settings",
	"backup", "backups", "old", "tmp", "temp",
	"upload", "uploads", "static", "assets", "public",
	"robots.txt", "sitemap.xml", "humans.txt", "favicon.ico",
	".env", ".env.local", ".git/config", ".git/HEAD",
	"dashboard", "console", "manage", "management",
	"health", "healthz", "status", "ping", "metrics", "debug",
	"swagger", "swagger.json", "swagger-ui", "openapi.json",
	"docs", "documentation", "readme.md",
	"test", "tests", "dev", "staging",
	"user", "users", "account", "accounts", "profile",
	"search", "download", "export", "import",
	"webhook", "webhooks", "callback",
	".well-known/security.txt",
}

// frameworkPaths augments the common list when a technology fingerprint
// (from response headers or body markers) suggests a specific stack.
var frameworkPaths = map[string][]string{
	"wordpress": {"wp-admin", "wp-login.php", "wp-content", "wp-json", "wp-includes", "xmlrpc.php"},
	"django":    {"admin/login", "static/admin", "__debug__"},
	"laravel":   {".env", "storage/logs/laravel.log", "artisan", "vendor/composer/installed.json"},
	"rails":     {"rails/info/properties", "assets/manifest.json"},
	"express":   {"node_modules", "package.json"},
	"spring":    {"actuator", "actuator/health", "actuator/env"},
}

// BuildWordlist returns the deduplicated word list for a probe run: the
// common paths plus anything keyed to a detected technology.
func BuildWordlist(technologies []string) []string {
	seen := make(map[string]bool)
	var words []string
	add := func(list []string) {
		for _, w := range list {
			if !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
	}
	add(commonPaths)
	for _, t := range technologies {
		add(frameworkPaths[t])
	}
	return words
}
