package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/config"
	"github.com/essentialops/stockledger/internal/inventory"
	inventorydomain "github.com/essentialops/stockledger/internal/inventory/domain"
	"github.com/essentialops/stockledger/internal/item"
	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	"github.com/essentialops/stockledger/internal/ledger"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	"github.com/essentialops/stockledger/internal/location"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	obslogger "github.com/essentialops/stockledger/internal/observability/logger"
	obsmetrics "github.com/essentialops/stockledger/internal/observability/metrics"
	"github.com/essentialops/stockledger/internal/organization"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
	"github.com/essentialops/stockledger/internal/reconstruct"
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
	"github.com/essentialops/stockledger/internal/recordversion"
	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	"github.com/essentialops/stockledger/internal/snapshot"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	snapshotworker "github.com/essentialops/stockledger/internal/snapshot/worker"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OrgIDHeader carries the active organization for a request. Validating
// the caller's right to act for the org is an upstream concern.
const OrgIDHeader = "X-Org-Id"

var Module = fx.Module("http.server",
	obsmetrics.Module,
	organization.Module,
	location.Module,
	item.Module,
	recordversion.Module,
	ledger.Module,
	snapshot.Module,
	snapshotworker.Module,
	reconstruct.Module,
	inventory.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, registry *prometheus.Registry, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log.Named("http")))
	r.Use(metricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, registry *prometheus.Registry, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, registry, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	clock           clock.Clock
	organizationSvc organizationdomain.Service
	locationSvc     locationdomain.Service
	itemSvc         itemdomain.Service
	ledgerSvc       ledgerdomain.Service
	snapshotSvc     snapshotdomain.Service
	reconstructSvc  reconstructdomain.Service
	inventorySvc    inventorydomain.Service
	versionSvc      recordversiondomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Clock           clock.Clock
	OrganizationSvc organizationdomain.Service
	LocationSvc     locationdomain.Service
	ItemSvc         itemdomain.Service
	LedgerSvc       ledgerdomain.Service
	SnapshotSvc     snapshotdomain.Service
	ReconstructSvc  reconstructdomain.Service
	InventorySvc    inventorydomain.Service
	VersionSvc      recordversiondomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		clock:           p.Clock,
		organizationSvc: p.OrganizationSvc,
		locationSvc:     p.LocationSvc,
		itemSvc:         p.ItemSvc,
		ledgerSvc:       p.LedgerSvc,
		snapshotSvc:     p.SnapshotSvc,
		reconstructSvc:  p.ReconstructSvc,
		inventorySvc:    p.InventorySvc,
		versionSvc:      p.VersionSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1", RequireOrg())

	api.POST("/events", s.AppendEvent)
	api.GET("/events", s.ListEvents)
	api.POST("/transfers", s.AppendTransfer)

	api.GET("/locations", s.ListLocations)
	api.POST("/locations", s.CreateLocation)
	api.GET("/locations/:id", s.GetLocation)
	api.POST("/locations/:id/deactivate", s.DeactivateLocation)
	api.POST("/locations/:id/reactivate", s.ReactivateLocation)
	api.GET("/locations/:id/items", s.ItemsForLocation)
	api.GET("/locations/:id/quantities", s.LocationQuantities)

	api.GET("/items", s.ListItems)
	api.POST("/items", s.CreateItem)
	api.GET("/items/:id", s.GetItem)
	api.POST("/items/:id/deactivate", s.DeactivateItem)
	api.POST("/items/:id/reactivate", s.ReactivateItem)

	api.GET("/quantities", s.CurrentQuantities)
	api.GET("/reconstruction", s.Reconstruction)

	api.POST("/snapshots", s.PublishSnapshot)
	api.GET("/snapshots/latest", s.LatestSnapshot)
	api.POST("/snapshots/:id/verify", s.VerifySnapshot)
	api.POST("/snapshots/:id/prune", s.PruneSnapshot)

	api.GET("/record-versions", s.ListRecordVersions)
}

// RequireOrg resolves the organization header into the request context.
func RequireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(OrgIDHeader))
		if raw == "" {
			AbortWithError(c, newValidationError("org_id", "missing_org", "missing "+OrgIDHeader+" header"))
			return
		}
		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("org_id", "invalid_org", "invalid "+OrgIDHeader+" header"))
			return
		}
		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func metricsMiddleware(metrics *obsmetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		metrics.HTTPDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
