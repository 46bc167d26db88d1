package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"erpcore/internal/model"
	"erpcore/internal/repository"
	"erpcore/internal/workflow"
	ws "erpcore/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- In-memory fakes ---
//
// The fakes persist only on explicit Update/Create calls and hand out
// copies from the locking finders, mirroring how uncommitted row changes
// never reach the store when a transaction aborts.

type fakeStore struct {
	requests map[uuid.UUID]model.Request
	ledgers  map[string]model.BalanceLedger
	users    map[uuid.UUID]model.User
	perms    map[string][]string
	lines    map[uuid.UUID][]model.PurchaseOrderLine
	products map[uuid.UUID]model.Product
	invTxs   []model.InventoryTransaction
	entries  map[string]model.AttendanceEntry
	audits   []model.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: make(map[uuid.UUID]model.Request),
		ledgers:  make(map[string]model.BalanceLedger),
		users:    make(map[uuid.UUID]model.User),
		perms:    make(map[string][]string),
		lines:    make(map[uuid.UUID][]model.PurchaseOrderLine),
		products: make(map[uuid.UUID]model.Product),
		entries:  make(map[string]model.AttendanceEntry),
	}
}

func ledgerKey(subjectID uuid.UUID, resourceType string, period int) string {
	return fmt.Sprintf("%s|%s|%d", subjectID, resourceType, period)
}

func entryKey(employeeID uuid.UUID, workDate time.Time) string {
	return fmt.Sprintf("%s|%s", employeeID, workflow.BusinessDate(workDate).Format("2006-01-02"))
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeRequestRepo struct{ store *fakeStore }

func (r *fakeRequestRepo) Create(ctx context.Context, req *model.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.store.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, ok := r.store.requests[id]
	if !ok {
		return nil, workflow.ErrRequestNotFound
	}
	return &req, nil
}

func (r *fakeRequestRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeRequestRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeRequestRepo) Update(ctx context.Context, req *model.Request) error {
	if _, ok := r.store.requests[req.ID]; !ok {
		return workflow.ErrRequestNotFound
	}
	r.store.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]model.Request, int64, error) {
	var out []model.Request
	for _, req := range r.store.requests {
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Kind != "" && req.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequestRepo) HasOverlappingLeave(ctx context.Context, requesterID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	for _, req := range r.store.requests {
		if req.Kind != workflow.KindLeave || req.RequesterID != requesterID {
			continue
		}
		if req.Status != workflow.StatusPending && req.Status != workflow.StatusApproved {
			continue
		}
		if excludeID != nil && req.ID == *excludeID {
			continue
		}
		if workflow.Overlaps(*req.StartDate, *req.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) Find(ctx context.Context, subjectID uuid.UUID, resourceType string, period int) (*model.BalanceLedger, error) {
	l, ok := r.store.ledgers[ledgerKey(subjectID, resourceType, period)]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *fakeLedgerRepo) FindOrCreateForUpdate(ctx context.Context, subjectID uuid.UUID, resourceType string, period int) (*model.BalanceLedger, error) {
	key := ledgerKey(subjectID, resourceType, period)
	l, ok := r.store.ledgers[key]
	if !ok {
		l = model.BalanceLedger{ID: uuid.New(), SubjectID: subjectID, ResourceType: resourceType, Period: period}
		r.store.ledgers[key] = l
	}
	return &l, nil
}

func (r *fakeLedgerRepo) Update(ctx context.Context, ledger *model.BalanceLedger) error {
	r.store.ledgers[ledgerKey(ledger.SubjectID, ledger.ResourceType, ledger.Period)] = *ledger
	return nil
}

func (r *fakeLedgerRepo) ListForSubject(ctx context.Context, subjectID uuid.UUID, period int) ([]model.BalanceLedger, error) {
	var out []model.BalanceLedger
	for _, l := range r.store.ledgers {
		if l.SubjectID == subjectID && (period == 0 || l.Period == period) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakePurchaseRepo struct{ store *fakeStore }

func (r *fakePurchaseRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakePurchaseRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

func (r *fakePurchaseRepo) FindProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindProductByID(ctx, id)
}

func (r *fakePurchaseRepo) UpdateProduct(ctx context.Context, product *model.Product) error {
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakePurchaseRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	delete(r.store.products, id)
	return nil
}

func (r *fakePurchaseRepo) ListProducts(ctx context.Context, page, limit int) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.store.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakePurchaseRepo) CreateLines(ctx context.Context, lines []model.PurchaseOrderLine) error {
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		r.store.lines[lines[i].RequestID] = append(r.store.lines[lines[i].RequestID], lines[i])
	}
	return nil
}

func (r *fakePurchaseRepo) FindLinesForUpdate(ctx context.Context, requestID uuid.UUID) ([]model.PurchaseOrderLine, error) {
	return append([]model.PurchaseOrderLine(nil), r.store.lines[requestID]...), nil
}

func (r *fakePurchaseRepo) FindLines(ctx context.Context, requestID uuid.UUID) ([]model.PurchaseOrderLine, error) {
	return r.FindLinesForUpdate(ctx, requestID)
}

func (r *fakePurchaseRepo) UpdateLine(ctx context.Context, line *model.PurchaseOrderLine) error {
	stored := r.store.lines[line.RequestID]
	for i := range stored {
		if stored[i].ID == line.ID {
			stored[i] = *line
			return nil
		}
	}
	return errors.New("line not found")
}

func (r *fakePurchaseRepo) ReplaceLines(ctx context.Context, requestID uuid.UUID, lines []model.PurchaseOrderLine) error {
	delete(r.store.lines, requestID)
	return r.CreateLines(ctx, lines)
}

func (r *fakePurchaseRepo) RecordInventoryTx(ctx context.Context, tx *model.InventoryTransaction) error {
	r.store.invTxs = append(r.store.invTxs, *tx)
	return nil
}

func (r *fakePurchaseRepo) NextPONumber(ctx context.Context, now time.Time) (string, error) {
	return "PO-" + now.UTC().Format("20060102") + "-00001", nil
}

type fakeAttendanceRepo struct{ store *fakeStore }

func (r *fakeAttendanceRepo) Upsert(ctx context.Context, entry *model.AttendanceEntry) error {
	r.store.entries[entryKey(entry.EmployeeID, entry.WorkDate)] = *entry
	return nil
}

func (r *fakeAttendanceRepo) FindByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, workDate time.Time) (*model.AttendanceEntry, error) {
	e, ok := r.store.entries[entryKey(employeeID, workDate)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *fakeAttendanceRepo) ListForEmployee(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]model.AttendanceEntry, error) {
	var out []model.AttendanceEntry
	for _, e := range r.store.entries {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	return false, nil
}

func (r *fakeAttendanceRepo) CreateHoliday(ctx context.Context, holiday *model.Holiday) error {
	return nil
}

func (r *fakeAttendanceRepo) ListHolidays(ctx context.Context, year int) ([]model.Holiday, error) {
	return nil, nil
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	u, ok := r.store.users[uid]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error { return nil }

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error { return nil }

type fakeRoleRepo struct{ store *fakeStore }

func (r *fakeRoleRepo) Create(ctx context.Context, role *model.Role) error { return nil }
func (r *fakeRoleRepo) Update(ctx context.Context, role *model.Role) error { return nil }
func (r *fakeRoleRepo) Delete(ctx context.Context, id uuid.UUID) error     { return nil }
func (r *fakeRoleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRoleRepo) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRoleRepo) ListAll(ctx context.Context) ([]model.Role, error) { return nil, nil }
func (r *fakeRoleRepo) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return nil, nil
}
func (r *fakeRoleRepo) UpdatePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	return nil
}
func (r *fakeRoleRepo) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	return r.store.perms[roleName], nil
}
func (r *fakeRoleRepo) FindOrCreatePermission(ctx context.Context, perm *model.Permission) error {
	return nil
}
func (r *fakeRoleRepo) AssociatePermissions(ctx context.Context, roleID uuid.UUID, permIDs []uuid.UUID) error {
	return nil
}

type fakeAuditRepo struct{ store *fakeStore }

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return r.store.audits, int64(len(r.store.audits)), nil
}

type captureNotifier struct{ events []ws.Notification }

func (n *captureNotifier) Notify(e ws.Notification) { n.events = append(n.events, e) }

// --- Test fixture ---

type workflowEnv struct {
	store    *fakeStore
	svc      WorkflowService
	notifier *captureNotifier
	now      time.Time

	requester uuid.UUID
	manager   uuid.UUID
	approver  uuid.UUID // purchase approver
}

func newWorkflowEnv(t *testing.T) *workflowEnv {
	t.Helper()

	store := newFakeStore()
	notifier := &captureNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &workflowEnv{
		store:     store,
		notifier:  notifier,
		now:       now,
		requester: uuid.New(),
		manager:   uuid.New(),
		approver:  uuid.New(),
	}

	store.users[env.manager] = model.User{ID: env.manager, Username: "mgr", Role: "manager"}
	store.users[env.requester] = model.User{ID: env.requester, Username: "emp", Role: "staff", ManagerID: &env.manager}
	store.users[env.approver] = model.User{ID: env.approver, Username: "buyer", Role: "manager"}
	store.perms["staff"] = []string{"requests.read", "requests.write"}
	store.perms["manager"] = []string{"requests.read", "requests.write", "requests.approve", workflow.PermApprovePurchase, "warehouse.write"}

	env.svc = NewWorkflowService(
		&fakeRequestRepo{store},
		&fakeLedgerRepo{store},
		&fakePurchaseRepo{store},
		&fakeAttendanceRepo{store},
		&fakeUserRepo{store},
		&fakeRoleRepo{store},
		&fakeAuditRepo{store},
		fakeTxManager{},
		workflow.FixedClock{T: now},
		notifier,
		log,
	)
	return env
}

func (e *workflowEnv) seedLedger(subjectID uuid.UUID, resourceType string, period int, entitled, used string) {
	ent := decimal.RequireFromString(entitled)
	u := decimal.RequireFromString(used)
	e.store.ledgers[ledgerKey(subjectID, resourceType, period)] = model.BalanceLedger{
		ID: uuid.New(), SubjectID: subjectID, ResourceType: resourceType, Period: period,
		Entitled: ent, Used: u, Available: ent.Sub(u),
	}
}

func (e *workflowEnv) ledger(subjectID uuid.UUID, resourceType string, period int) model.BalanceLedger {
	return e.store.ledgers[ledgerKey(subjectID, resourceType, period)]
}

func (e *workflowEnv) seedLeave(status workflow.Status, days int, startOffsetDays int) *model.Request {
	start := workflow.BusinessDate(e.now).AddDate(0, 0, startOffsetDays)
	end := start.AddDate(0, 0, days-1)
	req := model.Request{
		ID:           uuid.New(),
		Kind:         workflow.KindLeave,
		Status:       status,
		RequesterID:  e.requester,
		Amount:       decimal.NewFromInt(int64(days)),
		ResourceType: workflow.ResourceAnnualLeave,
		StartDate:    &start,
		EndDate:      &end,
	}
	e.store.requests[req.ID] = req
	return &req
}

// --- Transition tests ---

func TestTransition_ApproveLeaveReservesBalance(t *testing.T) {
	env := newWorkflowEnv(t)
	env.seedLedger(env.requester, workflow.ResourceAnnualLeave, 2026, "12", "0")
	req := env.seedLeave(workflow.StatusPending, 3, 7)

	res, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusApproved), res.Status)

	stored := env.store.requests[req.ID]
	assert.Equal(t, workflow.StatusApproved, stored.Status)
	require.NotNil(t, stored.DecidedAt)
	require.NotNil(t, stored.DecidedByID)
	assert.Equal(t, env.manager, *stored.DecidedByID)

	l := env.ledger(env.requester, workflow.ResourceAnnualLeave, 2026)
	assert.True(t, l.Used.Equal(decimal.NewFromInt(3)))
	assert.True(t, l.Available.Equal(decimal.NewFromInt(9)))
	assert.True(t, l.ConsistencyOK())

	// One ledger audit plus one transition audit.
	require.Len(t, env.store.audits, 2)
	assert.Equal(t, model.ActionLedgerReserve, env.store.audits[0].Action)
	assert.Equal(t, model.ActionApproveRequest, env.store.audits[1].Action)

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, ws.EventRequestDecided, env.notifier.events[0].Event)
	assert.Equal(t, req.ID.String(), env.notifier.events[0].RequestID)
}

func TestTransition_ApproveLeaveInsufficientBalance(t *testing.T) {
	env := newWorkflowEnv(t)
	env.seedLedger(env.requester, workflow.ResourceAnnualLeave, 2026, "5", "3")
	req := env.seedLeave(workflow.StatusPending, 3, 7)

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInsufficientBalance)
	assert.True(t, workflow.IsBusinessRule(err))

	// Nothing moved: the request stays pending and the ledger untouched.
	stored := env.store.requests[req.ID]
	assert.Equal(t, workflow.StatusPending, stored.Status)
	assert.Nil(t, stored.DecidedAt)

	l := env.ledger(env.requester, workflow.ResourceAnnualLeave, 2026)
	assert.True(t, l.Used.Equal(decimal.NewFromInt(3)))
	assert.True(t, l.Available.Equal(decimal.NewFromInt(2)))

	assert.Empty(t, env.store.audits)
	assert.Empty(t, env.notifier.events)
}

func TestTransition_ApproveRequiresManager(t *testing.T) {
	env := newWorkflowEnv(t)
	env.seedLedger(env.requester, workflow.ResourceAnnualLeave, 2026, "12", "0")
	req := env.seedLeave(workflow.StatusPending, 2, 7)

	// The requester cannot approve their own leave.
	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.requester.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	// Neither can an unrelated manager.
	_, err = env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.approver.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	assert.Equal(t, workflow.StatusPending, env.store.requests[req.ID].Status)
}

func TestTransition_ApproveAlreadyDecided(t *testing.T) {
	env := newWorkflowEnv(t)
	req := env.seedLeave(workflow.StatusApproved, 2, 7)

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrAlreadyDecided)
	assert.True(t, workflow.IsConflict(err))
}

func TestTransition_RejectRequiresReason(t *testing.T) {
	env := newWorkflowEnv(t)
	req := env.seedLeave(workflow.StatusPending, 2, 7)

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReject, env.manager.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrMissingReason)
	assert.Equal(t, workflow.StatusPending, env.store.requests[req.ID].Status)

	res, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReject, env.manager.String(), TransitionPayload{Reason: "project freeze"})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusRejected), res.Status)

	stored := env.store.requests[req.ID]
	assert.Equal(t, "project freeze", stored.DecisionNotes)
	require.NotNil(t, stored.DecidedAt)

	// A rejection never touches the ledger.
	assert.Empty(t, env.store.ledgers)
}

func TestTransition_CancelApprovedLeaveReleasesDays(t *testing.T) {
	env := newWorkflowEnv(t)
	env.seedLedger(env.requester, workflow.ResourceAnnualLeave, 2026, "12", "3")
	req := env.seedLeave(workflow.StatusApproved, 3, 7)

	res, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionCancel, env.requester.String(), TransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusCancelled), res.Status)

	l := env.ledger(env.requester, workflow.ResourceAnnualLeave, 2026)
	assert.True(t, l.Used.IsZero())
	assert.True(t, l.Available.Equal(decimal.NewFromInt(12)))
	assert.True(t, l.ConsistencyOK())

	require.Len(t, env.store.audits, 2)
	assert.Equal(t, model.ActionLedgerRelease, env.store.audits[0].Action)
}

func TestTransition_CancelAfterLeaveStarted(t *testing.T) {
	env := newWorkflowEnv(t)
	env.seedLedger(env.requester, workflow.ResourceAnnualLeave, 2026, "12", "3")
	req := env.seedLeave(workflow.StatusApproved, 3, -1) // started yesterday

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionCancel, env.requester.String(), TransitionPayload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	assert.Equal(t, workflow.StatusApproved, env.store.requests[req.ID].Status)
	l := env.ledger(env.requester, workflow.ResourceAnnualLeave, 2026)
	assert.True(t, l.Used.Equal(decimal.NewFromInt(3)))
}

func TestTransition_ApproveCompOffCreditsBalance(t *testing.T) {
	env := newWorkflowEnv(t)
	worked := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) // Saturday
	req := model.Request{
		ID:           uuid.New(),
		Kind:         workflow.KindCompOff,
		Status:       workflow.StatusPending,
		RequesterID:  env.requester,
		Amount:       decimal.NewFromInt(1),
		ResourceType: workflow.ResourceCompOff,
		WorkedDate:   &worked,
	}
	env.store.requests[req.ID] = req

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.NoError(t, err)

	l := env.ledger(env.requester, workflow.ResourceCompOff, 2026)
	assert.True(t, l.Entitled.Equal(decimal.NewFromInt(1)))
	assert.True(t, l.Available.Equal(decimal.NewFromInt(1)))
	assert.True(t, l.ConsistencyOK())
}

func TestTransition_ApproveExpensePostsToVendorLedger(t *testing.T) {
	env := newWorkflowEnv(t)
	vendorID := uuid.New()
	req := model.Request{
		ID:           uuid.New(),
		Kind:         workflow.KindExpense,
		Status:       workflow.StatusPending,
		RequesterID:  env.requester,
		Amount:       decimal.RequireFromString("250"),
		Currency:     "EUR",
		ExchangeRate: decimal.RequireFromString("1.08"),
		BaseAmount:   decimal.RequireFromString("270"),
		VendorID:     &vendorID,
	}
	env.store.requests[req.ID] = req

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.NoError(t, err)

	l := env.ledger(vendorID, workflow.ResourcePayment, env.now.Year())
	assert.True(t, l.Used.Equal(decimal.RequireFromString("270")), "payables tally uses the base amount")
	assert.True(t, l.ConsistencyOK())
}

func TestTransition_ApproveRegularizationFixesAttendance(t *testing.T) {
	env := newWorkflowEnv(t)
	worked := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	req := model.Request{
		ID:          uuid.New(),
		Kind:        workflow.KindRegularization,
		Status:      workflow.StatusPending,
		RequesterID: env.requester,
		Amount:      decimal.NewFromInt(1),
		WorkedDate:  &worked,
		Metadata:    `{"clock_in":"09:00","clock_out":"18:30"}`,
	}
	env.store.requests[req.ID] = req

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.NoError(t, err)

	entry, ok := env.store.entries[entryKey(env.requester, worked)]
	require.True(t, ok, "attendance entry should be written on approval")
	require.NotNil(t, entry.ClockIn)
	require.NotNil(t, entry.ClockOut)
	assert.Equal(t, "09:00", entry.ClockIn.Format("15:04"))
	assert.Equal(t, "18:30", entry.ClockOut.Format("15:04"))
}

func TestTransition_RegularizationWithBadClockString(t *testing.T) {
	env := newWorkflowEnv(t)
	worked := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	req := model.Request{
		ID:          uuid.New(),
		Kind:        workflow.KindRegularization,
		Status:      workflow.StatusPending,
		RequesterID: env.requester,
		Amount:      decimal.NewFromInt(1),
		WorkedDate:  &worked,
		Metadata:    `{"clock_in":"9am","clock_out":"18:00"}`,
	}
	env.store.requests[req.ID] = req

	// An unparseable clock string leaves that side nil but still applies
	// the rest of the correction.
	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	require.NoError(t, err)

	entry, ok := env.store.entries[entryKey(env.requester, worked)]
	require.True(t, ok)
	assert.Nil(t, entry.ClockIn)
	require.NotNil(t, entry.ClockOut)
	assert.Equal(t, "18:00", entry.ClockOut.Format("15:04"))
	assert.Equal(t, workflow.StatusApproved, env.store.requests[req.ID].Status)
}

// --- Purchase order lifecycle ---

func (e *workflowEnv) seedPurchaseOrder(status workflow.Status, quantities ...int) (*model.Request, []model.PurchaseOrderLine) {
	req := model.Request{
		ID:          uuid.New(),
		Kind:        workflow.KindPurchaseOrder,
		Status:      status,
		RequesterID: e.requester,
		Amount:      decimal.NewFromInt(100),
		PONumber:    "PO-20260310-00001",
	}
	e.store.requests[req.ID] = req

	lines := make([]model.PurchaseOrderLine, 0, len(quantities))
	for _, qty := range quantities {
		product := model.Product{ID: uuid.New(), SKU: uuid.NewString()[:8], Name: "widget", CurrentStock: 0}
		e.store.products[product.ID] = product
		line := model.PurchaseOrderLine{
			ID:         uuid.New(),
			RequestID:  req.ID,
			ProductID:  product.ID,
			OrderedQty: qty,
			UnitPrice:  decimal.NewFromInt(10),
		}
		e.store.lines[req.ID] = append(e.store.lines[req.ID], line)
		lines = append(lines, line)
	}
	return &req, lines
}

func TestTransition_SubmitDraftPurchaseOrder(t *testing.T) {
	env := newWorkflowEnv(t)
	req, _ := env.seedPurchaseOrder(workflow.StatusDraft, 10)

	res, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionSubmit, env.requester.String(), TransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusPending), res.Status)

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, ws.EventRequestSubmitted, env.notifier.events[0].Event)

	// Only the owner may submit.
	req2, _ := env.seedPurchaseOrder(workflow.StatusDraft, 5)
	_, err = env.svc.Transition(context.Background(), req2.ID.String(), workflow.ActionSubmit, env.approver.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestTransition_PartialThenFullReceipt(t *testing.T) {
	env := newWorkflowEnv(t)
	req, lines := env.seedPurchaseOrder(workflow.StatusApproved, 10, 4)

	res, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReceive, env.approver.String(), TransitionPayload{
		Receipts: []ReceiptInput{{LineID: lines[0].ID.String(), Quantity: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusPartiallyReceived), res.Status)

	assert.Equal(t, 6, env.store.products[lines[0].ProductID].CurrentStock)
	assert.Equal(t, 0, env.store.products[lines[1].ProductID].CurrentStock)
	assert.Equal(t, 6, env.store.lines[req.ID][0].ReceivedQty)

	require.Len(t, env.store.invTxs, 1)
	assert.Equal(t, model.TxTypeIn, env.store.invTxs[0].TransactionType)
	assert.Equal(t, 6, env.store.invTxs[0].QuantityChanged)
	assert.Equal(t, 6, env.store.invTxs[0].StockAfter)

	// Receiving the remainder completes the order.
	res, err = env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReceive, env.approver.String(), TransitionPayload{
		Receipts: []ReceiptInput{
			{LineID: lines[0].ID.String(), Quantity: 4},
			{LineID: lines[1].ID.String(), Quantity: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusReceived), res.Status)

	assert.Equal(t, 10, env.store.products[lines[0].ProductID].CurrentStock)
	assert.Equal(t, 4, env.store.products[lines[1].ProductID].CurrentStock)
	require.Len(t, env.store.invTxs, 3)

	require.Len(t, env.notifier.events, 2)
	assert.Equal(t, ws.EventStockReceived, env.notifier.events[1].Event)
}

func TestTransition_OverReceiptRejected(t *testing.T) {
	env := newWorkflowEnv(t)
	req, lines := env.seedPurchaseOrder(workflow.StatusApproved, 10)
	env.store.lines[req.ID][0].ReceivedQty = 8

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReceive, env.approver.String(), TransitionPayload{
		Receipts: []ReceiptInput{{LineID: lines[0].ID.String(), Quantity: 3}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrOverReceipt)

	// Stock and status must be untouched.
	assert.Equal(t, 0, env.store.products[lines[0].ProductID].CurrentStock)
	assert.Equal(t, workflow.StatusApproved, env.store.requests[req.ID].Status)
	assert.Empty(t, env.store.invTxs)
}

func TestTransition_ReceiveUnknownLineRejected(t *testing.T) {
	env := newWorkflowEnv(t)
	req, _ := env.seedPurchaseOrder(workflow.StatusApproved, 10)

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReceive, env.approver.String(), TransitionPayload{
		Receipts: []ReceiptInput{{LineID: uuid.NewString(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestTransition_ReceiveWithoutReceipts(t *testing.T) {
	env := newWorkflowEnv(t)
	req, _ := env.seedPurchaseOrder(workflow.StatusApproved, 10)

	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionReceive, env.approver.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestTransition_ApprovePurchaseNeedsPermission(t *testing.T) {
	env := newWorkflowEnv(t)
	req, _ := env.seedPurchaseOrder(workflow.StatusPending, 10)

	// Staff lack the purchase approval permission even on their own team.
	staffID := uuid.New()
	env.store.users[staffID] = model.User{ID: staffID, Username: "other", Role: "staff"}
	_, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, staffID.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	res, err := env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, env.approver.String(), TransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusApproved), res.Status)
}

func TestTransition_BadIdentifiers(t *testing.T) {
	env := newWorkflowEnv(t)
	req := env.seedLeave(workflow.StatusPending, 1, 7)

	_, err := env.svc.Transition(context.Background(), "not-a-uuid", workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = env.svc.Transition(context.Background(), req.ID.String(), workflow.ActionApprove, "not-a-uuid", TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = env.svc.Transition(context.Background(), uuid.NewString(), workflow.ActionApprove, env.manager.String(), TransitionPayload{})
	assert.ErrorIs(t, err, workflow.ErrRequestNotFound)
}

func TestGetAndList(t *testing.T) {
	env := newWorkflowEnv(t)
	req := env.seedLeave(workflow.StatusPending, 2, 7)
	env.seedPurchaseOrder(workflow.StatusDraft, 5)

	got, err := env.svc.Get(context.Background(), req.ID.String())
	require.NoError(t, err)
	assert.Equal(t, req.ID.String(), got.ID)
	assert.Equal(t, string(workflow.KindLeave), got.Kind)

	all, total, err := env.svc.List(context.Background(), repository.RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	leaves, total, err := env.svc.List(context.Background(), repository.RequestFilter{Kind: workflow.KindLeave})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, leaves, 1)
	assert.Equal(t, req.ID.String(), leaves[0].ID)
}
