package capability

import (
	"context"

	"github.com/wayfarelabs/orchestra/core"
)

// EscrowService is the payment escrow collaborator boundary.
type EscrowService interface {
	Hold(ctx context.Context, buyerID, sellerID string, amount float64) (map[string]any, error)
	Release(ctx context.Context, escrowID string) (map[string]any, error)
	Refund(ctx context.Context, escrowID string) (map[string]any, error)
}

// DiscoveryService is the catalog/feed discovery collaborator boundary.
type DiscoveryService interface {
	Search(ctx context.Context, query string, filters map[string]any) (map[string]any, error)
	Recommend(ctx context.Context, userID string) (map[string]any, error)
}

// RoutingService is the logistics/transport routing collaborator boundary.
type RoutingService interface {
	PlanRoute(ctx context.Context, origin, destination string) (map[string]any, error)
	EstimateArrival(ctx context.Context, routeID string) (map[string]any, error)
}

// PlanningService is the itinerary planning collaborator boundary.
type PlanningService interface {
	ParseItinerary(ctx context.Context, text string) (map[string]any, error)
	BuildItinerary(ctx context.Context, userID string, stops []any) (map[string]any, error)
}

func str(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func num(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// EscrowInvoker dispatches escrow workflow actions to an EscrowService.
type EscrowInvoker struct {
	svc EscrowService
}

// NewEscrowInvoker wraps an EscrowService.
func NewEscrowInvoker(svc EscrowService) *EscrowInvoker { return &EscrowInvoker{svc: svc} }

// AgentID implements Invoker.
func (i *EscrowInvoker) AgentID() core.AgentID { return core.AgentEscrow }

// Actions implements Invoker.
func (i *EscrowInvoker) Actions() []string { return []string{"hold", "release", "refund"} }

// Parameters implements Invoker.
func (i *EscrowInvoker) Parameters(action string) map[string]any {
	switch action {
	case "hold":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"buyer_id":  map[string]any{"type": "string"},
				"seller_id": map[string]any{"type": "string"},
				"amount":    map[string]any{"type": "number"},
			},
			"required": []any{"buyer_id", "seller_id", "amount"},
		}
	case "release", "refund":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"escrow_id": map[string]any{"type": "string"},
			},
			"required": []any{"escrow_id"},
		}
	}
	return nil
}

// Invoke implements Invoker.
func (i *EscrowInvoker) Invoke(ctx context.Context, req Request) (map[string]any, error) {
	switch req.Action {
	case "hold":
		return i.svc.Hold(ctx, str(req.Parameters, "buyer_id"), str(req.Parameters, "seller_id"), num(req.Parameters, "amount"))
	case "release":
		return i.svc.Release(ctx, str(req.Parameters, "escrow_id"))
	case "refund":
		return i.svc.Refund(ctx, str(req.Parameters, "escrow_id"))
	}
	return nil, &core.UnknownCapabilityError{AgentID: i.AgentID(), Action: req.Action}
}

// DiscoveryInvoker dispatches discovery workflow actions to a DiscoveryService.
type DiscoveryInvoker struct {
	svc DiscoveryService
}

// NewDiscoveryInvoker wraps a DiscoveryService.
func NewDiscoveryInvoker(svc DiscoveryService) *DiscoveryInvoker { return &DiscoveryInvoker{svc: svc} }

// AgentID implements Invoker.
func (i *DiscoveryInvoker) AgentID() core.AgentID { return core.AgentDiscovery }

// Actions implements Invoker.
func (i *DiscoveryInvoker) Actions() []string { return []string{"search", "recommend"} }

// Parameters implements Invoker.
func (i *DiscoveryInvoker) Parameters(action string) map[string]any {
	switch action {
	case "search":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string"},
				"filters": map[string]any{"type": "object"},
			},
			"required": []any{"query"},
		}
	case "recommend":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string"},
			},
			"required": []any{"user_id"},
		}
	}
	return nil
}

// Invoke implements Invoker.
func (i *DiscoveryInvoker) Invoke(ctx context.Context, req Request) (map[string]any, error) {
	switch req.Action {
	case "search":
		filters, _ := req.Parameters["filters"].(map[string]any)
		return i.svc.Search(ctx, str(req.Parameters, "query"), filters)
	case "recommend":
		return i.svc.Recommend(ctx, str(req.Parameters, "user_id"))
	}
	return nil, &core.UnknownCapabilityError{AgentID: i.AgentID(), Action: req.Action}
}

// RoutingInvoker dispatches routing workflow actions to a RoutingService.
type RoutingInvoker struct {
	svc RoutingService
}

// NewRoutingInvoker wraps a RoutingService.
func NewRoutingInvoker(svc RoutingService) *RoutingInvoker { return &RoutingInvoker{svc: svc} }

// AgentID implements Invoker.
func (i *RoutingInvoker) AgentID() core.AgentID { return core.AgentRouting }

// Actions implements Invoker.
func (i *RoutingInvoker) Actions() []string { return []string{"plan_route", "estimate_arrival"} }

// Parameters implements Invoker.
func (i *RoutingInvoker) Parameters(action string) map[string]any {
	switch action {
	case "plan_route":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"origin":      map[string]any{"type": "string"},
				"destination": map[string]any{"type": "string"},
			},
			"required": []any{"destination"},
		}
	case "estimate_arrival":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"route_id": map[string]any{"type": "string"},
			},
			"required": []any{"route_id"},
		}
	}
	return nil
}

// Invoke implements Invoker.
func (i *RoutingInvoker) Invoke(ctx context.Context, req Request) (map[string]any, error) {
	switch req.Action {
	case "plan_route":
		return i.svc.PlanRoute(ctx, str(req.Parameters, "origin"), str(req.Parameters, "destination"))
	case "estimate_arrival":
		return i.svc.EstimateArrival(ctx, str(req.Parameters, "route_id"))
	}
	return nil, &core.UnknownCapabilityError{AgentID: i.AgentID(), Action: req.Action}
}

// PlanningInvoker dispatches itinerary workflow actions to a PlanningService.
type PlanningInvoker struct {
	svc PlanningService
}

// NewPlanningInvoker wraps a PlanningService.
func NewPlanningInvoker(svc PlanningService) *PlanningInvoker { return &PlanningInvoker{svc: svc} }

// AgentID implements Invoker.
func (i *PlanningInvoker) AgentID() core.AgentID { return core.AgentPlanning }

// Actions implements Invoker.
func (i *PlanningInvoker) Actions() []string { return []string{"parse_itinerary", "build_itinerary"} }

// Parameters implements Invoker.
func (i *PlanningInvoker) Parameters(action string) map[string]any {
	switch action {
	case "parse_itinerary":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		}
	case "build_itinerary":
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string"},
				"stops":   map[string]any{"type": "array"},
			},
			"required": []any{"user_id"},
		}
	}
	return nil
}

// Invoke implements Invoker.
func (i *PlanningInvoker) Invoke(ctx context.Context, req Request) (map[string]any, error) {
	switch req.Action {
	case "parse_itinerary":
		return i.svc.ParseItinerary(ctx, str(req.Parameters, "text"))
	case "build_itinerary":
		stops, _ := req.Parameters["stops"].([]any)
		return i.svc.BuildItinerary(ctx, str(req.Parameters, "user_id"), stops)
	}
	return nil, &core.UnknownCapabilityError{AgentID: i.AgentID(), Action: req.Action}
}

var (
	_ Invoker = (*EscrowInvoker)(nil)
	_ Invoker = (*DiscoveryInvoker)(nil)
	_ Invoker = (*RoutingInvoker)(nil)
	_ Invoker = (*PlanningInvoker)(nil)
)
