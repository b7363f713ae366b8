package gateway

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTemplate is the stock consent message offered to operators.
// {name} and {auth_link} are the only placeholders a template may use.
const DefaultTemplate = "Hola *{name}*,\n\n" +
	"Para continuar brindándote nuestro servicio, necesitamos actualizar tu autorización de tratamiento de datos.\n\n" +
	"Por favor, acepta los términos aquí: {auth_link}\n\n" +
	"Gracias."

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// TemplateError reports a message template referencing placeholders the
// renderer does not know. It is returned, never panicked, so one bad
// template fails a single recipient without aborting a dispatch pass.
type TemplateError struct {
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("message template references unknown placeholder {%s}", e.Placeholder)
}

// ValidateTemplate checks that a template only uses supported placeholders.
func ValidateTemplate(template string) error {
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		switch match[1] {
		case "name", "auth_link":
		default:
			return &TemplateError{Placeholder: match[1]}
		}
	}
	return nil
}

// RenderTemplate substitutes {name} and {auth_link} into the template,
// validating it first.
func RenderTemplate(template, name, authLink string) (string, error) {
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}

	message := strings.ReplaceAll(template, "{name}", name)
	message = strings.ReplaceAll(message, "{auth_link}", authLink)
	return message, nil
}
