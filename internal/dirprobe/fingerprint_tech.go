package dirprobe

import "strings"

// DetectTechnologies inspects response headers and body for the stack
// hints frameworkPaths knows how to augment: Server/X-Powered-By headers,
// session-cookie names, and body markers. Grounded on the teacher's
// pkg/discovery/active_probing.go fingerprintTechnology heuristics, pared
// down to the frameworks frameworkPaths actually covers.
func DetectTechnologies(headers map[string][]string, body []byte) []string {
	header := func(name string) string {
		for k, vs := range headers {
			if strings.EqualFold(k, name) && len(vs) > 0 {
				return vs[0]
			}
		}
		return ""
	}
	setCookie := strings.ToLower(strings.Join(headers["Set-Cookie"], ";"))
	server := strings.ToLower(header("Server"))
	poweredBy := strings.ToLower(header("X-Powered-By"))
	bodyLower := strings.ToLower(string(body))

	var found []string
	add := func(name string) { found = append(found, name) }

	if strings.Contains(server, "wordpress") || strings.Contains(bodyLower, "wp-content") || strings.Contains(bodyLower, "wp-json") {
		add("wordpress")
	}
	if strings.Contains(setCookie, "csrftoken") || strings.Contains(bodyLower, "__debug__") || strings.Contains(poweredBy, "django") {
		add("django")
	}
	if strings.Contains(setCookie, "laravel_session") || strings.Contains(bodyLower, "laravel") {
		add("laravel")
	}
	if strings.Contains(poweredBy, "express") {
		add("express")
	}
	if strings.Contains(server, "phusion passenger") || strings.Contains(setCookie, "_session_id") {
		add("rails")
	}
	if strings.Contains(bodyLower, "actuator") || strings.Contains(server, "tomcat") {
		add("spring")
	}
	return found
}
