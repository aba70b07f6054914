package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	return v.claims, v.err
}

type observation struct {
	method string
	path   string
	status int
}

type observerStub struct {
	seen []observation
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.seen = append(o.seen, observation{method, path, status})
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	r := gin.New()
	r.GET("/runs/:id", JWT(v), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentClaims(c).UserID)
	})
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/runs/1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRolesAllowMatchingRole(t *testing.T) {
	v := &validatorStub{claims: &models.JWTClaims{UserID: "ops-1", Role: models.RoleScheduler}}
	r := newProtectedRouter(v, models.RoleAdmin, models.RoleScheduler)

	rec := serve(r, "Bearer  abc.def ")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops-1", rec.Body.String())
	assert.Equal(t, "abc.def", v.token)
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newProtectedRouter(&validatorStub{}, models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer ").Code)
}

func TestJWTPropagatesValidationError(t *testing.T) {
	v := &validatorStub{err: appErrors.WrapAs(errors.New("expired"), appErrors.ErrUnauthorized, "invalid token")}
	r := newProtectedRouter(v, models.RoleAdmin)

	rec := serve(r, "Bearer abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	v := &validatorStub{claims: &models.JWTClaims{UserID: "ops-1", Role: models.RoleScheduler}}
	r := newProtectedRouter(v, models.RoleAdmin)

	rec := serve(r, "Bearer abc")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "SCHEDULER")
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &observerStub{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/generations/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	for _, path := range []string{"/generations/abc", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []observation{
		{http.MethodGet, "/generations/:id", http.StatusAccepted},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, obs.seen)
}
