// Package redact masks credentials in source snippets before they are sent
// to a hosted model.
package redact

import (
	"math"
	"regexp"
	"strings"
)

const Redacted = "[REDACTED_SECRET]"

var (
	privateKey   = regexp.MustCompile(`-----BEGIN (RSA|EC|DSA|OPENSSH) PRIVATE KEY-----[\s\S]+?-----END (RSA|EC|DSA|OPENSSH) PRIVATE KEY-----`)
	awsAccessKey = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	awsSecretKey = regexp.MustCompile(`(?i)aws(.{0,20})?(secret|access)["'\s:=]+[A-Za-z0-9/+=]{32,}`)
	modelKey     = regexp.MustCompile(`sk-(ant-|proj-)?[A-Za-z0-9_\-]{20,}`)
	ghToken      = regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{30,}`)
	jwtToken     = regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`)
	genericToken = regexp.MustCompile("(?i)(token|secret|password|passwd|api[_-]?key|access[_-]?key)([\"']?\\s*[:=]\\s*)([\"'`])[^\"'`\\s]{8,}")
	dsnPassword  = regexp.MustCompile(`([a-z][a-z0-9+]*://[^:/@\s]+:)[^@\s]+(@)`)
	urlParams    = regexp.MustCompile(`([?&](token|key|secret|sig|signature|access_token|auth)=)[^&\s"'` + "`" + `]+`)
	base64Like   = regexp.MustCompile(`[A-Za-z0-9+/=]{32,}`)
	hexLike      = regexp.MustCompile(`[A-Fa-f0-9]{32,}`)
)

// Redact replaces anything that looks like a credential with Redacted.
// Assignments of string literals keep their key and opening quote so the
// code still reads.
func Redact(input string) string {
	if input == "" {
		return input
	}
	output := privateKey.ReplaceAllString(input, Redacted)
	output = awsAccessKey.ReplaceAllString(output, Redacted)
	output = awsSecretKey.ReplaceAllString(output, Redacted)
	output = modelKey.ReplaceAllString(output, Redacted)
	output = ghToken.ReplaceAllString(output, Redacted)
	output = jwtToken.ReplaceAllString(output, Redacted)
	output = genericToken.ReplaceAllString(output, "${1}${2}${3}"+Redacted)
	output = dsnPassword.ReplaceAllString(output, "${1}"+Redacted+"${2}")
	output = urlParams.ReplaceAllString(output, "${1}"+Redacted)
	output = replaceIfHighEntropy(output, base64Like)
	output = replaceIfHighEntropy(output, hexLike)
	return output
}

// Optional redacts input only when enabled.
func Optional(input string, enabled bool) string {
	if !enabled {
		return input
	}
	return Redact(input)
}

func replaceIfHighEntropy(input string, re *regexp.Regexp) string {
	return re.ReplaceAllStringFunc(input, func(match string) string {
		// Long identifiers are high-entropy too; secrets almost always carry digits.
		if strings.ContainsAny(match, "0123456789") && entropy(match) >= 4.0 {
			return Redacted
		}
		return match
	})
}

// entropy is the Shannon entropy of s in bits per rune.
func entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	var ent float64
	for _, count := range counts {
		p := float64(count) / float64(n)
		ent -= p * math.Log2(p)
	}
	return ent
}
