// pkg/panel_io/input.go
//
// Terminal input for the interactive collector. All prompts validate and
// sanitize what the operator types; passwords are read without echo.

package panel_io

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	// MaxInputLength bounds a single prompted value.
	MaxInputLength = 4096

	// MaxPasswordLength bounds password input.
	MaxPasswordLength = 256
)

var (
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x9F]`)
	ansiEscapeRegex  = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]|\x9b[0-9;]*[A-Za-z]`)
)

// InputValidationError represents input validation errors.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Reason)
}

func validateUserInput(input, fieldName string) error {
	if len(input) > MaxInputLength {
		return &InputValidationError{
			Field:  fieldName,
			Reason: fmt.Sprintf("too long (%d chars, max %d)", len(input), MaxInputLength),
		}
	}
	if !utf8.ValidString(input) {
		return &InputValidationError{Field: fieldName, Reason: "contains invalid UTF-8 sequences"}
	}
	if controlCharRegex.MatchString(input) {
		return &InputValidationError{Field: fieldName, Reason: "contains control characters"}
	}
	if ansiEscapeRegex.MatchString(input) {
		return &InputValidationError{Field: fieldName, Reason: "contains ANSI escape sequences"}
	}
	return nil
}

func sanitizeUserInput(input string) string {
	sanitized := controlCharRegex.ReplaceAllString(input, "")
	sanitized = ansiEscapeRegex.ReplaceAllString(sanitized, "")
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	return strings.TrimSpace(sanitized)
}

func validatePasswordInput(password, fieldName string) error {
	if len(password) == 0 {
		return &InputValidationError{Field: fieldName, Reason: "cannot be empty"}
	}
	if len(password) > MaxPasswordLength {
		return &InputValidationError{
			Field:  fieldName,
			Reason: fmt.Sprintf("too long (%d chars, max %d)", len(password), MaxPasswordLength),
		}
	}
	for _, r := range password {
		if r < 32 || (r >= 127 && r <= 159) {
			return &InputValidationError{Field: fieldName, Reason: "contains control characters"}
		}
	}
	return nil
}

// IsTerminal reports whether stdin is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptInput prompts for a value, returning fallback when the operator
// accepts the default with an empty line.
func PromptInput(rc *RuntimeContext, question, fieldName, fallback string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if !IsTerminal() {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	if fallback != "" {
		fmt.Printf("%s [%s]: ", question, fallback)
	} else {
		fmt.Printf("%s: ", question)
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("no input received")
	}

	input := scanner.Text()
	if strings.TrimSpace(input) == "" {
		return fallback, nil
	}

	if err := validateUserInput(input, fieldName); err != nil {
		logger.Warn("Invalid user input", zap.String("field", fieldName), zap.Error(err))
		return "", err
	}

	return sanitizeUserInput(input), nil
}

// PromptSecurePassword prompts for a password without echoing to screen.
// An empty response is returned as-is so callers can generate one instead.
func PromptSecurePassword(rc *RuntimeContext, question string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if !IsTerminal() {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Printf("%s: ", question)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	passwordStr := string(password)
	if passwordStr == "" {
		return "", nil
	}

	if err := validatePasswordInput(passwordStr, "password"); err != nil {
		logger.Warn("Invalid password input", zap.Error(err))
		return "", err
	}

	logger.Debug("Successfully read secure password input")
	return passwordStr, nil
}

// PromptYesNo asks a yes/no question. Outside a terminal the default is
// returned so non-interactive runs never hang on a prompt.
func PromptYesNo(rc *RuntimeContext, question string, defaultYes bool) (bool, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if !IsTerminal() {
		logger.Info("Non-interactive session, using default answer",
			zap.String("question", question),
			zap.Bool("default", defaultYes))
		return defaultYes, nil
	}

	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}
	fmt.Print(question + suffix)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read input: %w", err)
		}
		return defaultYes, nil
	}

	response := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if response == "" {
		return defaultYes, nil
	}
	return response == "y" || response == "yes", nil
}
