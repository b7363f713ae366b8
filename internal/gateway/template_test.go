package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate(DefaultTemplate))
	assert.NoError(t, ValidateTemplate("no placeholders at all"))
	assert.NoError(t, ValidateTemplate("Hola {name}, entra a {auth_link}"))

	err := ValidateTemplate("Hola {nombre}, entra a {auth_link}")
	require.Error(t, err)

	var templateErr *TemplateError
	require.ErrorAs(t, err, &templateErr)
	assert.Equal(t, "nombre", templateErr.Placeholder)
}

func TestRenderTemplate(t *testing.T) {
	message, err := RenderTemplate("Hola {name}: {auth_link}", "Ana", "https://example.com/auth/tok")
	require.NoError(t, err)
	assert.Equal(t, "Hola Ana: https://example.com/auth/tok", message)
}

func TestRenderTemplateRepeatedPlaceholders(t *testing.T) {
	message, err := RenderTemplate("{name} {name}", "Ana", "")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ana", message)
}

func TestRenderTemplateUnknownPlaceholder(t *testing.T) {
	_, err := RenderTemplate("Hola {first_name}", "Ana", "link")
	assert.Error(t, err)
}
