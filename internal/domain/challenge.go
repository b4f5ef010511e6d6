// Package domain contains core domain types for the captcha-gate service.
package domain

// Challenge is a generated image challenge and the plaintext a member must
// reply with to pass it.
type Challenge struct {
	Image  []byte
	Answer string
}

// Valid reports whether the challenge carries both an image payload and an
// answer. A challenge is created once per presentation and never mutated.
func (c *Challenge) Valid() bool {
	return c != nil && len(c.Image) > 0 && c.Answer != ""
}
