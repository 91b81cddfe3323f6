package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	appvalidator "github.com/jwalitptl/hospital-api/pkg/validator"
)

// ConfigureBinding makes gin's binding validator report json/form field
// names, matching the service-level validator.
func ConfigureBinding() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		appvalidator.RegisterJSONTagNames(v)
	}
}
