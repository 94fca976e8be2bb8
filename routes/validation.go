package routes

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"dular-server/models"
)

var registerOnce sync.Once

// RegisterValidators adds the marketplace enum tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		rules := map[string]func(string) bool{
			"servicetype":      func(s string) bool { return models.ServiceType(s).Valid() },
			"servicecategory":  func(s string) bool { return models.ServiceCategory(s).Valid() },
			"shift":            func(s string) bool { return models.Shift(s).Valid() },
			"incidenttype":     func(s string) bool { return models.IncidentType(s).Valid() },
			"incidentseverity": func(s string) bool { return models.IncidentSeverity(s).Valid() },
			"incidentstatus":   func(s string) bool { return models.IncidentStatus(s).Valid() },
		}
		for tag, valid := range rules {
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return valid(fl.Field().String())
			})
		}
	})
}
