package api

import (
	"net/http"
	"sync"

	"github.com/blnkfinance/recordlist"
	"github.com/blnkfinance/recordlist/api/middleware"
	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/describe"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Api serves one record list. A RecordList is not safe for concurrent use, so every
// handler that touches it holds mu.
type Api struct {
	mu        sync.Mutex
	list      *recordlist.RecordList
	formatter *describe.Formatter
	router    *gin.Engine
}

func (a *Api) Router() *gin.Engine {
	router := a.router

	router.GET("/records", a.GetRecords)
	router.GET("/records/:index", a.GetRecord)
	router.POST("/records/:index/accept", a.AcceptRecord)
	router.POST("/records/:index/cancel", a.CancelRecord)
	router.POST("/records/:index/discard", a.DiscardRecord)
	router.POST("/records/:index/discard-cash", a.DiscardOutgoingCash)
	router.DELETE("/records/:index", a.DeleteRecord)

	router.POST("/accounts/:id/inbox/accept", a.AcceptInbox)
	router.POST("/accounts/:id/payments/accept", a.AcceptPayments)
	router.POST("/nyms/:id/outpayments/cancel", a.CancelPayments)
	router.POST("/nyms/:id/payments/discard", a.DiscardPayments)

	router.POST("/auto-accept", a.AutoAccept)
	router.POST("/accounts/:id/refresh", a.RefreshAccount)
	return a.router
}

// NewAPI builds the HTTP surface for list. Descriptions are rendered by formatter.
func NewAPI(list *recordlist.RecordList, formatter *describe.Formatter) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("RECORDLIST"))
	r.Use(middleware.RateLimitMiddleware(conf.RateLimit, "/health", "/metrics"))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf.Server.SecretKey))
	}

	return &Api{list: list, formatter: formatter, router: r}
}
