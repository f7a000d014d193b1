package bones

import "regexp"

// secretPattern pairs a regexp with the human-readable name of the
// credential shape it recognizes, for the message a blocked append
// reports.
type secretPattern struct {
	name string
	re   *regexp.Regexp
}

// No third-party secret-scanning library appears anywhere in the
// retrieved pack (grepped original_source/crates/bones-core for a
// scanner implementation; none exists there either — spec.md names the
// requirement but never an implementation to port). A small,
// regexp-based scanner covering the common high-signal credential
// shapes is the grounded fallback: internal/cache's column codec is the
// precedent for "no suitable library in the pack, stdlib is correct."
var secretPatterns = []secretPattern{
	{"AWS access key ID", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"AWS secret access key", regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`)},
	{"private key block", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA |PGP )?PRIVATE KEY-----`)},
	{"GitHub token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"Slack token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`)},
	{"bearer token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{20,}=*`)},
	{"generic API key assignment", regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"][A-Za-z0-9_\-./+]{12,}['"]`)},
}

// scanForSecret reports the name of the first credential pattern found
// in text, or ok=false if none match.
func scanForSecret(text string) (name string, ok bool) {
	for _, p := range secretPatterns {
		if p.re.MatchString(text) {
			return p.name, true
		}
	}
	return "", false
}

// secretGuard scans every user-supplied string in texts and returns a
// KindSecretGuard error naming the first credential shape it finds,
// unless override is set. It never blocks structural fields (IDs,
// agent names, phase strings) — only the free-text fields an intent
// carries (title, description, comment body).
func secretGuard(override bool, texts ...string) error {
	if override {
		return nil
	}
	for _, t := range texts {
		if name, ok := scanForSecret(t); ok {
			return newError(KindSecretGuard,
				"text appears to contain a "+name+"; pass an explicit override to append anyway", nil)
		}
	}
	return nil
}
