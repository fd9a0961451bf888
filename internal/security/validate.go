package security

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	nameRE    = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	mobileRE  = regexp.MustCompile(`^(\+91)?[6-9][0-9]{9}$`)
	pincodeRE = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	queryRE   = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
)

var sortKeys = map[string]struct{}{
	"price-low":  {},
	"price-high": {},
	"name-asc":   {},
	"name-desc":  {},
	"newest":     {},
}

// FieldError is one field-level validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator holds the per-route field rules. The supported country is
// configuration so orders outside it fail closed.
type Validator struct {
	v       *validator.Validate
	country string
}

// NewValidator creates a validator bound to the supported country
func NewValidator(country string) *Validator {
	return &Validator{
		v:       validator.New(),
		country: country,
	}
}

// ValidateCustomer checks and normalizes the checkout form fields,
// returning every rule violation. Fields are trimmed and the email is
// lowercased in place.
func (va *Validator) ValidateCustomer(c *models.Customer) []FieldError {
	var errs []FieldError

	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.TrimSpace(c.State)
	c.Address = strings.TrimSpace(c.Address)
	c.Country = strings.TrimSpace(c.Country)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Mobile = strings.TrimSpace(c.Mobile)
	c.Pincode = strings.TrimSpace(c.Pincode)

	checkName := func(field, value, label string) {
		if len(value) < 2 || len(value) > 50 || !nameRE.MatchString(value) {
			errs = append(errs, FieldError{
				Field:   field,
				Message: label + " must be 2-50 characters and contain only letters",
			})
		}
	}
	checkName("firstName", c.FirstName, "First name")
	checkName("lastName", c.LastName, "Last name")
	checkName("city", c.City, "City")
	checkName("state", c.State, "State")

	if err := va.v.Var(c.Email, "required,email"); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if !mobileRE.MatchString(c.Mobile) {
		errs = append(errs, FieldError{Field: "mobile", Message: "Please provide a valid Indian mobile number"})
	}
	if len(c.Address) < 10 || len(c.Address) > 200 {
		errs = append(errs, FieldError{Field: "address", Message: "Address must be 10-200 characters long"})
	}
	if !pincodeRE.MatchString(c.Pincode) {
		errs = append(errs, FieldError{Field: "pincode", Message: "Please provide a valid Indian pincode"})
	}
	if c.Country != va.country {
		errs = append(errs, FieldError{Field: "country", Message: "Country must be " + va.country})
	}

	return errs
}

// ValidateSearch checks the search/category/sort query parameters;
// absent parameters pass
func (va *Validator) ValidateSearch(search, category, sort string) []FieldError {
	var errs []FieldError

	if search != "" && (len(search) > 100 || !queryRE.MatchString(search)) {
		errs = append(errs, FieldError{Field: "search", Message: "Search term contains invalid characters"})
	}
	if category != "" && (len(category) > 50 || !queryRE.MatchString(category)) {
		errs = append(errs, FieldError{Field: "category", Message: "Category contains invalid characters"})
	}
	if sort != "" {
		if _, ok := sortKeys[sort]; !ok {
			errs = append(errs, FieldError{Field: "sort", Message: "Invalid sort parameter"})
		}
	}

	return errs
}

// ValidateProductID checks a product id path parameter
func (va *Validator) ValidateProductID(raw string) (int64, *FieldError) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &FieldError{Field: "id", Message: "Product ID must be a positive integer"}
	}
	return id, nil
}

// rejectValidation writes the standard 400 response and logs the failure
func rejectValidation(c *gin.Context, errs []FieldError) {
	fields := util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())
	util.GetLogger().Warn("Validation failed", append(fields, zap.Any("errors", errs))...)
	util.ValidationFailuresTotal.Inc()

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid input data",
		"details": errs,
	})
}

// ValidateSearchQuery guards listing routes; runs after the sanitizing
// stages so it sees cleaned input
func ValidateSearchQuery(va *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		errs := va.ValidateSearch(c.Query("search"), c.Query("category"), c.Query("sort"))
		if len(errs) > 0 {
			rejectValidation(c, errs)
			return
		}
		c.Next()
	}
}

// ValidateProductParam guards routes carrying an :id path parameter
func ValidateProductParam(va *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, fieldErr := va.ValidateProductID(c.Param("id")); fieldErr != nil {
			rejectValidation(c, []FieldError{*fieldErr})
			return
		}
		c.Next()
	}
}
