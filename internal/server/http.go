package server

import (
	"context"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/conf"
	"spend-tier-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(c *conf.Bootstrap, tierService *service.TierService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if c.Server.Http.Timeout != nil {
			opts = append(opts, http.Timeout(c.Server.Http.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())
	registerTierHTTPServer(srv, tierService)
	return srv
}

func registerTierHTTPServer(s *http.Server, svc *service.TierService) {
	r := s.Route("/")
	r.POST("/v1/tier/classify", classifyHandler(svc))
	r.POST("/v1/transactions/validate", validateHandler(svc))
	r.POST("/v1/eligibility/apply", applyHandler(svc))
	r.POST("/v1/tiers/batch", batchHandler(svc))
	r.POST("/v1/tiers/aggregate", aggregateHandler(svc))
	r.GET("/v1/customers/{customer_id}/tier", getTierHandler(svc))
	r.GET("/v1/transactions/{transaction_id}/eligibility", getEligibilityHandler(svc))
}

func classifyHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.ClassifyRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return svc.Classify(ctx, req.(*service.ClassifyRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func validateHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.ValidateRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return svc.ValidateTransactions(ctx, req.(*service.ValidateRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func applyHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in biz.ValidatedBatch
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return svc.ApplyRules(ctx, req.(*biz.ValidatedBatch))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func batchHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.BatchRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return svc.ProcessTiers(ctx, req.(*service.BatchRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func aggregateHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		h := ctx.Middleware(func(ctx context.Context, _ any) (any, error) {
			return svc.RunAggregate(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func getTierHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		customerID := ctx.Vars().Get("customer_id")
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return svc.GetTier(ctx, req.(string))
		})
		out, err := h(ctx, customerID)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func getEligibilityHandler(svc *service.TierService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		transactionID := ctx.Vars().Get("transaction_id")
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return svc.GetEligibility(ctx, req.(string))
		})
		out, err := h(ctx, transactionID)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
