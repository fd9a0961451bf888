package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// suspiciousPatterns covers script tags, SQL injection keywords, path
// traversal sequences and boolean injection idioms
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*script\s*>`),
	regexp.MustCompile(`(?i)union\s+select|drop\s+table|delete\s+from`),
	regexp.MustCompile(`\.\./|\.\.\\`),
	regexp.MustCompile(`(?i)\b(or|and)\b\s*\d+\s*=\s*\d+`),
}

// DetectSuspicious scans body, query string and URL against the fixed
// pattern set. A match rejects immediately with 403; sanitization stages
// run after this so the raw input is what gets inspected.
func DetectSuspicious() gin.HandlerFunc {
	logger := util.GetLogger()
	return func(c *gin.Context) {
		body, err := peekBody(c)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				logger.Warn("Request body over size limit",
					util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())...)
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request entity too large"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		checked := string(body) + c.Request.URL.RawQuery + c.Request.URL.Path

		for _, pattern := range suspiciousPatterns {
			if pattern.MatchString(checked) {
				fields := util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())
				fields = append(fields,
					zap.ByteString("body", body),
					zap.String("query", c.Request.URL.RawQuery),
					zap.String("pattern", pattern.String()))
				logger.Error("Suspicious activity detected", fields...)
				util.SuspiciousRequestsTotal.Inc()
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Suspicious activity detected"})
				return
			}
		}
		c.Next()
	}
}

// ParamPollutionGuard collapses duplicate query and form parameters to
// their last value per key
func ParamPollutionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		polluted := false
		for key, vals := range q {
			if len(vals) > 1 {
				q[key] = vals[len(vals)-1:]
				polluted = true
			}
		}
		if polluted {
			c.Request.URL.RawQuery = q.Encode()
		}

		if isFormRequest(c) {
			if vals, ok := readFormBody(c); ok {
				changed := false
				for key, vv := range vals {
					if len(vv) > 1 {
						vals[key] = vv[len(vv)-1:]
						changed = true
					}
				}
				if changed {
					replaceBody(c, []byte(vals.Encode()))
				}
			}
		}
		c.Next()
	}
}

// injectionReplacer strips the characters used to smuggle NoSQL
// operators through string input
var injectionReplacer = strings.NewReplacer("$", "", "{", "", "}", "")

// SanitizeInjection strips operator-injection characters from every
// string input and drops $-prefixed object keys from JSON bodies
func SanitizeInjection() gin.HandlerFunc {
	return func(c *gin.Context) {
		sanitizeRequest(c, injectionReplacer.Replace, true)
		c.Next()
	}
}

// SanitizeXSS escapes HTML-significant sequences in every string-valued
// field of body and query, in place
func SanitizeXSS() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()
	return func(c *gin.Context) {
		sanitizeRequest(c, policy.Sanitize, false)
		c.Next()
	}
}

// peekBody reads the request body and restores it for downstream readers
func peekBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// replaceBody swaps the request body and fixes the content length
func replaceBody(c *gin.Context, data []byte) {
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	c.Request.ContentLength = int64(len(data))
}

func isFormRequest(c *gin.Context) bool {
	return c.ContentType() == "application/x-www-form-urlencoded"
}

func readFormBody(c *gin.Context) (url.Values, bool) {
	raw, err := peekBody(c)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	vals, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, false
	}
	return vals, true
}

// sanitizeRequest applies fn to every string value in the query and the
// JSON or form body. dropDollarKeys additionally removes $-prefixed keys
// from JSON objects.
func sanitizeRequest(c *gin.Context, fn func(string) string, dropDollarKeys bool) {
	q := c.Request.URL.Query()
	for key, vals := range q {
		for i := range vals {
			vals[i] = fn(vals[i])
		}
		q[key] = vals
	}
	c.Request.URL.RawQuery = q.Encode()

	switch {
	case strings.HasPrefix(c.ContentType(), "application/json"):
		raw, err := peekBody(c)
		if err != nil || len(raw) == 0 {
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return
		}
		doc = walkStrings(doc, fn, dropDollarKeys)
		out, err := json.Marshal(doc)
		if err != nil {
			return
		}
		replaceBody(c, out)

	case isFormRequest(c):
		vals, ok := readFormBody(c)
		if !ok {
			return
		}
		for key, vv := range vals {
			for i := range vv {
				vv[i] = fn(vv[i])
			}
			vals[key] = vv
		}
		replaceBody(c, []byte(vals.Encode()))
	}
}

func walkStrings(v any, fn func(string) string, dropDollarKeys bool) any {
	switch t := v.(type) {
	case string:
		return fn(t)
	case []any:
		for i := range t {
			t[i] = walkStrings(t[i], fn, dropDollarKeys)
		}
		return t
	case map[string]any:
		for key, val := range t {
			if dropDollarKeys && strings.HasPrefix(key, "$") {
				delete(t, key)
				continue
			}
			t[key] = walkStrings(val, fn, dropDollarKeys)
		}
		return t
	default:
		return v
	}
}
