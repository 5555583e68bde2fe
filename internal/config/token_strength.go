package config

import zxcvbn "github.com/ccojocar/zxcvbn-go"

const weakTokenScoreThreshold = 3

// IsWeakToken reports whether an API bearer token configured in
// WEATHERMAP_AUTH_TOKENS is weak enough to warrant a startup warning.
// Empty token is handled by auth mode (disabled), so this function treats it as not weak.
func IsWeakToken(token string) bool {
	if token == "" {
		return false
	}
	result := zxcvbn.PasswordStrength(token, nil)
	return result.Score < weakTokenScoreThreshold
}
