package handler

import (
	"errors"
	"net/http"
	"reflect"

	"lotledger/internal/apierror"
	"lotledger/internal/inverr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondEngineError maps the engine's failure taxonomy onto HTTP statuses.
// Conflicts carry Retry-After so clients know to re-select and retry the
// same request; everything unrecognized falls through to the error-handler
// middleware as a 500.
func respondEngineError(c *gin.Context, err error) {
	var (
		transition    *inverr.InvalidStateTransitionError
		shortfall     *inverr.InsufficientInventoryError
		serialShort   *inverr.InsufficientSerialsError
		overconsume   *inverr.InsufficientQuantityError
		inconsistency *inverr.AccountingInconsistencyError
	)

	switch {
	case errors.Is(err, inverr.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, inverr.ErrConflict):
		c.Header("Retry-After", "0")
		c.JSON(http.StatusConflict, apierror.New("concurrent modification, retry the request"))
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, apierror.New(transition.Error()))
	case errors.As(err, &shortfall):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(shortfall.Error()))
	case errors.As(err, &serialShort):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(serialShort.Error()))
	case errors.As(err, &overconsume):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(overconsume.Error()))
	case errors.As(err, &inconsistency):
		// Escalation is handled by the calling handler (alert enqueue);
		// the client still learns the ledger is unusable for this item.
		c.JSON(http.StatusInternalServerError, apierror.New(inconsistency.Error()))
	default:
		_ = c.Error(err)
	}
}
