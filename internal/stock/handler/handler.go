package handler

import (
	"net/http"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
)

// dateLayout is the wire format of every calendar date the API accepts
const dateLayout = "2006-01-02"

func scopeOf(r *http.Request) service.Scope {
	return service.Scope{WarehouseID: httputil.GetWarehouseID(r.Context())}
}

// parseDate parses an optional date field. An empty value yields the zero time.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.Validation(map[string]string{
			field: "must be a date formatted as " + dateLayout,
		})
	}
	return t, nil
}

// decodeAndValidate reads the JSON body into v and runs its validate tags
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := httputil.DecodeJSON(r, v); err != nil {
		return err
	}
	return httputil.Validate(v)
}
