package errors

import "fmt"

// Common error types.
var (
	// Grammar errors cover malformed ACE and policy strings. They are fatal
	// for the policy file (or current-state listing) being parsed.
	ErrGrammar          = fmt.Errorf("invalid permission syntax")
	ErrSubjectName      = fmt.Errorf("subject cannot have a name")
	ErrSpecialField     = fmt.Errorf("fourth permission field only allowed for owner, owning group and other")
	ErrPermissionCode   = fmt.Errorf("invalid permission code")
	ErrPermissionLength = fmt.Errorf("permission code too short")

	// Config errors cover policy-file level problems. Conflicting or
	// overridden sections are dropped with a warning, not fatal.
	ErrConfig       = fmt.Errorf("invalid policy configuration")
	ErrInvalidFinal = fmt.Errorf("invalid value for FINAL")

	// Identity errors are recovered with a root fallback, never fatal.
	ErrIdentity     = fmt.Errorf("unknown identity")
	ErrUnknownUser  = fmt.Errorf("unknown user")
	ErrUnknownGroup = fmt.Errorf("unknown group")

	// External operation errors are fatal for the path being processed.
	ErrExternalOp = fmt.Errorf("external operation failed")

	// CLI / tool configuration errors.
	ErrEmptyConfigPath  = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrConfigValidation = fmt.Errorf("invalid configuration")
	ErrInvalidPath      = fmt.Errorf("invalid path")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
