package compliance

import "fmt"

// ComplianceMode selects how aggressively decoding rejects key packages it
// cannot fully check.
//
// Permissive accepts key packages under a recognised but unsupported
// ciphersuite without verifying their signature. Strict prefers explicit
// failure over silent acceptance and rejects them.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("compliance(%d)", int(m))
	}
}

// AllowUnverifiedSuites reports whether key packages under an unsupported
// suite may be accepted without signature verification.
func (m ComplianceMode) AllowUnverifiedSuites() bool {
	return m != Strict
}

// Parse maps "permissive" or "strict" to a mode. The empty string is Permissive.
func Parse(s string) (ComplianceMode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return 0, fmt.Errorf("compliance: unknown mode %q", s)
	}
}
