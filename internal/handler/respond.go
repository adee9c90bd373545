package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/analytics"
	"github.com/Shubhamjha-sj/signal/internal/chat"
	"github.com/Shubhamjha-sj/signal/internal/processor"
	"github.com/Shubhamjha-sj/signal/internal/search"
	"github.com/Shubhamjha-sj/signal/pkg/adapters"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// errBadRequest marks request validation failures
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, adapters.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, adapters.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, adapters.ErrSourceDisabled):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.Is(err, processor.ErrEmptyContent),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrNoFeedbackIDs),
		errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, analytics.ErrInvalidMetric),
		errors.Is(err, adapters.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *logrus.Entry, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return badRequest("invalid body: %v", err)
	}
	return nil
}

func timeRange(c *gin.Context) (types.TimeRange, error) {
	r, err := types.ParseTimeRange(c.Query("time_range"))
	if err != nil {
		return "", badRequest("%v", err)
	}
	return r, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", key)
	}
	return v, nil
}

func boolQuery(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("%s must be a boolean", key)
	}
	return &v, nil
}

func page(c *gin.Context) (types.Page, error) {
	n, err := intQuery(c, "page", 1)
	if err != nil {
		return types.Page{}, err
	}
	size, err := intQuery(c, "page_size", 20)
	if err != nil {
		return types.Page{}, err
	}
	return types.Page{Number: n, Size: size}.Normalize(), nil
}

// listQuery splits repeated and comma separated query values
func listQuery(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
