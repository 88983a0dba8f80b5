package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortlink/internal/analytics"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

const (
	testSecret = "e2e-secret"
	firefoxUA  = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
)

type APITestSuite struct {
	suite.Suite
	recorder *analytics.Recorder
	server   *httptest.Server
	e        *httpexpect.Expect
}

func (suite *APITestSuite) SetupTest() {
	cfg := &config.Config{
		Env:       config.EnvProd,
		BaseURL:   "http://sho.rt",
		ShortCode: config.ShortCode{Length: 6},
		Storage:   config.Storage{Driver: config.DriverMemory},
		Auth:      config.Auth{Enabled: true, Strategy: config.AuthStrategyHS256, JWTSecret: testSecret},
		Enrich:    config.Enrich{GeoTimeout: 100 * time.Millisecond},
		Analytics: config.Analytics{Workers: 2, QueueSize: 16, EnrichTimeout: time.Second},
	}

	store := memory.New()
	st := &stores{links: store, access: store}

	handler, recorder, err := newHandler(context.Background(), cfg, NewLogger(cfg), st)
	suite.Require().NoError(err)

	suite.recorder = recorder
	suite.server = httptest.NewServer(handler)
	suite.T().Cleanup(func() {
		suite.server.Close()
		recorder.Close(context.Background())
	})

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *APITestSuite) token(sub string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	suite.Require().NoError(err)

	return "Bearer " + tok
}

// drain waits until every queued access record has been written.
func (suite *APITestSuite) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	suite.Require().NoError(suite.recorder.Close(ctx))
}

func (suite *APITestSuite) TestShortenResolveStats() {
	obj := suite.e.POST("/api/v1/shorten").
		WithHeader("Authorization", suite.token("alice")).
		WithJSON(map[string]string{"url": "https://example.com/docs"}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()

	obj.Value("target_url").String().IsEqual("https://example.com/docs")
	obj.Value("code").String().Length().IsEqual(6)
	shortCode := obj.Value("code").String().Raw()
	obj.Value("short_url").String().IsEqual("http://sho.rt/" + shortCode)

	suite.e.GET("/"+shortCode).
		WithHeader("User-Agent", firefoxUA).
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("https://example.com/docs")

	suite.drain()

	stats := suite.e.GET("/api/v1/links/"+shortCode+"/stats").
		WithHeader("Authorization", suite.token("alice")).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	stats.Value("click_count").Number().IsEqual(1)
	stats.Value("last_accessed_at").NotNull()

	accesses := stats.Value("accesses").Array()
	accesses.Length().IsEqual(1)

	rec := accesses.Value(0).Object()
	rec.Value("browser_family").String().IsEqual("Firefox")
	rec.Value("city").IsNull()
	rec.Value("country").IsNull()
}

func (suite *APITestSuite) TestStatsOfForeignLink() {
	shortCode := suite.e.POST("/api/v1/shorten").
		WithHeader("Authorization", suite.token("alice")).
		WithJSON(map[string]string{"url": "https://example.com"}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().Value("code").String().Raw()

	suite.e.GET("/api/v1/links/"+shortCode+"/stats").
		WithHeader("Authorization", suite.token("bob")).
		Expect().
		Status(http.StatusForbidden)
}

func (suite *APITestSuite) TestShortenWithoutToken() {
	suite.e.POST("/api/v1/shorten").
		WithJSON(map[string]string{"url": "https://example.com"}).
		Expect().
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate").IsEqual("Bearer")
}

func (suite *APITestSuite) TestResolveUnknownCode() {
	suite.e.GET("/zzzzzz").
		Expect().
		Status(http.StatusNotFound)
}

func (suite *APITestSuite) TestShortenInvalidURL() {
	suite.e.POST("/api/v1/shorten").
		WithHeader("Authorization", suite.token("alice")).
		WithJSON(map[string]string{"url": "not a url"}).
		Expect().
		Status(http.StatusBadRequest)
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
