package app

import (
	"context"
	"fmt"

	"pharmacy-orders/internal/core"
	"pharmacy-orders/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type appService struct {
	db                Pinger
	users             core.UserService
	ledger            core.InventoryLedger
	orders            core.OrderService
	prescriptions     core.PrescriptionService
	reporting         core.ReportingService
	logger            *zap.Logger
	tracer            trace.Tracer
	lowStockThreshold int
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	db Pinger,
	users core.UserService,
	ledger core.InventoryLedger,
	orders core.OrderService,
	prescriptions core.PrescriptionService,
	reporting core.ReportingService,
	logger *zap.Logger,
	lowStockThreshold int,
) ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &appService{
		db:                db,
		users:             users,
		ledger:            ledger,
		orders:            orders,
		prescriptions:     prescriptions,
		reporting:         reporting,
		logger:            logger,
		tracer:            observability.Tracer(),
		lowStockThreshold: lowStockThreshold,
	}
}

var staff = []core.Role{core.RolePharmacist, core.RoleAdmin}

// startSpan opens a span for a core operation tagged with the acting user.
func (s *appService) startSpan(ctx context.Context, name string, actor core.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.Int64("actor.id", actor.UserID),
		attribute.String("actor.role", string(actor.Role)),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

// finish records err on span and logs rejected operations. Domain rejections are
// expected traffic and go to debug; internal failures go to error.
func (s *appService) finish(span trace.Span, op string, actor core.Actor, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, core.CodeOf(err))

	fields := []zap.Field{
		zap.String("op", op),
		zap.Int64("actor_id", actor.UserID),
		zap.String("code", core.CodeOf(err)),
		zap.Error(err),
	}
	if core.KindOf(err) == core.KindInternal {
		s.logger.Error("operation failed", fields...)
		return
	}
	s.logger.Debug("operation rejected", fields...)
}

func (s *appService) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: database unreachable: %w", core.ErrInternal, err)
	}
	return nil
}

// ── Users ─────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Debug("login rejected", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int64) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

// ── Drugs and inventory ───────────────────────────────────────────────────────

func (s *appService) CreateDrug(ctx context.Context, actor core.Actor, req CreateDrugRequest) (result *DrugResult, err error) {
	ctx, span := s.startSpan(ctx, "app.CreateDrug", actor, attribute.String("drug.name", req.Name))
	defer func() { s.finish(span, "create_drug", actor, err) }()

	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	userID := actor.UserID
	drug, err := s.ledger.CreateDrug(ctx, core.DrugInput{
		Name:                 req.Name,
		GenericName:          req.GenericName,
		Manufacturer:         req.Manufacturer,
		DosageForm:           req.DosageForm,
		Price:                req.Price,
		InitialStock:         req.InitialStock,
		RequiresPrescription: req.RequiresPrescription,
	}, &userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("drug created",
		zap.Int64("drug_id", drug.ID),
		zap.String("name", drug.Name),
		zap.Int("initial_stock", drug.InitialStock),
		zap.Int64("actor_id", actor.UserID),
	)
	return &DrugResult{Drug: drug}, nil
}

func (s *appService) GetDrug(ctx context.Context, actor core.Actor, drugID int64) (*DrugResult, error) {
	drug, err := s.ledger.GetDrug(ctx, drugID)
	if err != nil {
		return nil, err
	}
	return &DrugResult{Drug: drug}, nil
}

func (s *appService) AdjustStock(ctx context.Context, actor core.Actor, req AdjustStockRequest) (result *DrugResult, err error) {
	ctx, span := s.startSpan(ctx, "app.AdjustStock", actor,
		attribute.Int64("drug.id", req.DrugID),
		attribute.String("inventory.change_type", req.ChangeType),
		attribute.Int("inventory.delta", req.Delta),
	)
	defer func() { s.finish(span, "adjust_stock", actor, err) }()

	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	userID := actor.UserID
	drug, err := s.ledger.AdjustStock(ctx, core.StockChange{
		DrugID:     req.DrugID,
		UserID:     &userID,
		ChangeType: core.ChangeType(req.ChangeType),
		Delta:      req.Delta,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("inventory.stock", drug.Stock))
	s.logger.Info("stock adjusted",
		zap.Int64("drug_id", drug.ID),
		zap.String("change_type", req.ChangeType),
		zap.Int("delta", req.Delta),
		zap.Int("stock", drug.Stock),
		zap.Int64("actor_id", actor.UserID),
	)
	return &DrugResult{Drug: drug}, nil
}

func (s *appService) InventoryLog(ctx context.Context, actor core.Actor, drugID int64, limit int) (*InventoryLogResult, error) {
	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	if _, err := s.ledger.GetDrug(ctx, drugID); err != nil {
		return nil, err
	}
	entries, err := s.reporting.InventoryLog(ctx, drugID, limit)
	if err != nil {
		return nil, err
	}
	return &InventoryLogResult{DrugID: drugID, Entries: entries}, nil
}

func (s *appService) LowStock(ctx context.Context, actor core.Actor, threshold *int) (*LowStockResult, error) {
	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	t := s.lowStockThreshold
	if threshold != nil {
		t = *threshold
	}
	drugs, err := s.reporting.LowStock(ctx, t)
	if err != nil {
		return nil, err
	}
	return &LowStockResult{Threshold: t, Drugs: drugs}, nil
}

func (s *appService) Reconcile(ctx context.Context, actor core.Actor) (*ReconcileResult, error) {
	if err := actor.RequireRole(core.RoleAdmin); err != nil {
		return nil, err
	}
	drift, err := s.reporting.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if len(drift) > 0 {
		s.logger.Warn("inventory ledger drift detected", zap.Int("drugs", len(drift)))
	}
	return &ReconcileResult{Balanced: len(drift) == 0, Drift: drift}, nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) SubmitOrder(ctx context.Context, actor core.Actor, req SubmitOrderRequest) (result *OrderResult, err error) {
	ctx, span := s.startSpan(ctx, "app.SubmitOrder", actor, attribute.Int("order.lines", len(req.Items)))
	defer func() { s.finish(span, "submit_order", actor, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	items := make([]core.OrderItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.OrderItemInput{DrugID: it.DrugID, Quantity: it.Quantity}
	}

	order, err := s.orders.SubmitOrder(ctx, actor.UserID, items)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.total", order.TotalAmount.StringFixed(2)),
	)
	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return &OrderResult{Order: order}, nil
}

func (s *appService) GetOrder(ctx context.Context, actor core.Actor, orderID int64) (*OrderResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && order.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: order %d belongs to another user", core.ErrUnauthorized, orderID)
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, actor core.Actor, limit int) (*OrderListResult, error) {
	var userID *int64
	if !actor.IsStaff() {
		id := actor.UserID
		userID = &id
	}
	orders, err := s.orders.ListOrders(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) CancelOrder(ctx context.Context, actor core.Actor, orderID int64) (result *OrderResult, err error) {
	ctx, span := s.startSpan(ctx, "app.CancelOrder", actor, attribute.Int64("order.id", orderID))
	defer func() { s.finish(span, "cancel_order", actor, err) }()

	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	order, err := s.orders.CancelOrder(ctx, orderID, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order canceled", zap.Int64("order_id", orderID), zap.Int64("actor_id", actor.UserID))
	return &OrderResult{Order: order}, nil
}

func (s *appService) CompleteOrder(ctx context.Context, actor core.Actor, orderID int64) (result *OrderResult, err error) {
	ctx, span := s.startSpan(ctx, "app.CompleteOrder", actor, attribute.Int64("order.id", orderID))
	defer func() { s.finish(span, "complete_order", actor, err) }()

	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	order, err := s.orders.CompleteOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order completed", zap.Int64("order_id", orderID), zap.Int64("actor_id", actor.UserID))
	return &OrderResult{Order: order}, nil
}

// ── Prescriptions ─────────────────────────────────────────────────────────────

func (s *appService) UploadPrescription(ctx context.Context, actor core.Actor, req UploadPrescriptionRequest) (result *PrescriptionResult, err error) {
	ctx, span := s.startSpan(ctx, "app.UploadPrescription", actor, attribute.Int("prescription.refill_allowed", req.RefillAllowed))
	defer func() { s.finish(span, "upload_prescription", actor, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	uid, err := core.HashContent(req.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	span.SetAttributes(attribute.String("prescription.uid", uid))

	p, err := s.prescriptions.Upload(ctx, actor.UserID, uid, req.RefillAllowed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("prescription uploaded",
		zap.Int64("prescription_id", p.ID),
		zap.String("uid", p.UID),
		zap.Int64("user_id", p.UserID),
	)
	return &PrescriptionResult{Prescription: p, Remaining: p.Remaining()}, nil
}

func (s *appService) GetPrescription(ctx context.Context, actor core.Actor, prescriptionID int64) (*PrescriptionResult, error) {
	p, err := s.prescriptions.GetPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && p.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: prescription %d belongs to another user", core.ErrUnauthorized, prescriptionID)
	}
	dispenses, err := s.prescriptions.ListDispenses(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	return &PrescriptionResult{Prescription: p, Remaining: p.Remaining(), Dispenses: dispenses}, nil
}

func (s *appService) ListPrescriptions(ctx context.Context, actor core.Actor, limit int) (*PrescriptionListResult, error) {
	var userID *int64
	if !actor.IsStaff() {
		id := actor.UserID
		userID = &id
	}
	list, err := s.prescriptions.ListPrescriptions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &PrescriptionListResult{Prescriptions: list}, nil
}

func (s *appService) DispensePrescription(ctx context.Context, actor core.Actor, req DispenseRequest) (result *PrescriptionResult, err error) {
	ctx, span := s.startSpan(ctx, "app.DispensePrescription", actor, attribute.Int64("prescription.id", req.PrescriptionID))
	defer func() { s.finish(span, "dispense_prescription", actor, err) }()

	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	p, err := s.prescriptions.Dispense(ctx, req.PrescriptionID, actor.UserID, req.OverrideRefillAllowed)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("prescription.refill_used", p.RefillUsed),
		attribute.String("prescription.status", string(p.Status)),
	)
	s.logger.Info("prescription dispensed",
		zap.Int64("prescription_id", p.ID),
		zap.Int("refill_used", p.RefillUsed),
		zap.Int("refill_allowed", p.RefillAllowed),
		zap.String("status", string(p.Status)),
		zap.Int64("pharmacist_id", actor.UserID),
	)
	return &PrescriptionResult{Prescription: p, Remaining: p.Remaining()}, nil
}

func (s *appService) RejectPrescription(ctx context.Context, actor core.Actor, req RejectRequest) (result *PrescriptionResult, err error) {
	ctx, span := s.startSpan(ctx, "app.RejectPrescription", actor, attribute.Int64("prescription.id", req.PrescriptionID))
	defer func() { s.finish(span, "reject_prescription", actor, err) }()

	if err := actor.RequireRole(staff...); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	p, err := s.prescriptions.Reject(ctx, req.PrescriptionID, actor.UserID, req.Reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("prescription rejected",
		zap.Int64("prescription_id", p.ID),
		zap.String("reason", p.RejectionReason),
		zap.Int64("pharmacist_id", actor.UserID),
	)
	return &PrescriptionResult{Prescription: p, Remaining: p.Remaining()}, nil
}
