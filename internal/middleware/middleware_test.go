package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/internal/service"
	"github.com/noah-isme/geophoto-api/pkg/deviceid"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

type validatorStub struct {
	claims *models.DeviceClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.DeviceClaims, error) {
	v.token = token
	return v.claims, v.err
}

func newProtectedRouter(v *validatorStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/photos", DeviceJWT(v), func(c *gin.Context) {
		id, _ := deviceid.FromContext(c.Request.Context())
		claims := DeviceClaims(c)
		c.JSON(http.StatusOK, gin.H{"ctx": id, "claims": claims.DeviceID})
	})
	return r
}

func TestDeviceJWTAccepts(t *testing.T) {
	v := &validatorStub{claims: &models.DeviceClaims{DeviceID: "device-1"}}
	r := newProtectedRouter(v)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/photos", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def", v.token)
	assert.JSONEq(t, `{"ctx":"device-1","claims":"device-1"}`, rec.Body.String())
}

func TestDeviceJWTRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "invalid token", header: "Bearer abc", err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newProtectedRouter(&validatorStub{err: tc.err})
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/photos", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMetricsMiddlewareRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMetricsMiddlewareSkipsAndCollapsesPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/metrics", "/nope/1", "/nope/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					paths[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{unmatchedRoute: 2}, paths)
}
