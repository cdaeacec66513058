package support

import (
	"context"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// Service defines support staff business logic.
type Service interface {
	// StaffCreated issues an affiliate code to a new support user. It is a
	// no-op for other roles and for users that already have a code.
	StaffCreated(ctx context.Context, userID uuid.UUID, role authz.Role) error
	Profile(ctx context.Context, supportID uuid.UUID) (*Profile, error)

	Assign(ctx context.Context, req AssignRequest) (*Assignment, error)
	Unassign(ctx context.Context, vendorID string) error
	ListAssignments(ctx context.Context, supportID string) ([]Assignment, error)

	SaveBankDetails(ctx context.Context, supportID uuid.UUID, req BankDetailsRequest) (*BankDetails, error)
	GetBankDetails(ctx context.Context, supportID uuid.UUID) (*BankDetails, error)

	MonthlyStats(ctx context.Context, supportID uuid.UUID, month string) (*MonthlyStats, error)
	Overview(ctx context.Context, month string) (*Overview, error)
	// ExportCommissions writes the month's overview as CSV and returns the
	// download file name.
	ExportCommissions(ctx context.Context, month string, w io.Writer) (string, error)
}

type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type service struct {
	repo    Repository
	users   Users
	rate    decimal.Decimal
	siteURL string
	now     func() time.Time
}

// NewService creates the support service. rate is the fraction of assigned
// vendors' paid sales earned as commission.
func NewService(repo Repository, users Users, rate decimal.Decimal, siteURL string) Service {
	return &service{repo: repo, users: users, rate: rate, siteURL: siteURL, now: time.Now}
}

// codeAttempts bounds retries when a generated code collides.
const codeAttempts = 5

func (s *service) StaffCreated(ctx context.Context, userID uuid.UUID, role authz.Role) error {
	if role != authz.RoleSupport {
		return nil
	}
	if _, err := s.repo.GetAffiliate(ctx, userID); err == nil {
		return nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	for range codeAttempts {
		code, err := newCode()
		if err != nil {
			return err
		}
		err = s.repo.CreateAffiliate(ctx, &Affiliate{SupportID: userID, Code: code})
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		logger.FromContext(ctx).Debug("affiliate code collision", zap.String("code", code))
	}
	return apperr.Conflict("could not allocate an affiliate code")
}

func (s *service) Profile(ctx context.Context, supportID uuid.UUID) (*Profile, error) {
	a, err := s.repo.GetAffiliate(ctx, supportID)
	if err != nil {
		return nil, err
	}
	p := &Profile{Code: a.Code, AffiliateLink: s.siteURL + "/vend?ref=" + a.Code}
	bd, err := s.repo.GetBankDetails(ctx, supportID)
	switch {
	case err == nil:
		p.BankDetails = bd
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	if p.Vendors, err = s.repo.ListAssignments(ctx, &supportID); err != nil {
		return nil, err
	}
	return p, nil
}

// ── assignments ──────────────────────────────────────────────────────────────

func (s *service) Assign(ctx context.Context, req AssignRequest) (*Assignment, error) {
	supportID, err := uuid.Parse(req.SupportID)
	if err != nil {
		return nil, apperr.Invalid("support_id must be a UUID")
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return nil, apperr.Invalid("vendor_id must be a UUID")
	}
	u, err := s.users.GetByID(ctx, supportID)
	if err != nil {
		return nil, err
	}
	if u.Role != authz.RoleSupport {
		return nil, apperr.Invalid("%s is not a support user", u.Email)
	}
	return s.repo.Assign(ctx, supportID, vendorID)
}

func (s *service) Unassign(ctx context.Context, vendorID string) error {
	id, err := uuid.Parse(vendorID)
	if err != nil {
		return apperr.Invalid("vendor id must be a UUID")
	}
	return s.repo.Unassign(ctx, id)
}

func (s *service) ListAssignments(ctx context.Context, supportID string) ([]Assignment, error) {
	if supportID == "" {
		return s.repo.ListAssignments(ctx, nil)
	}
	id, err := uuid.Parse(supportID)
	if err != nil {
		return nil, apperr.Invalid("support_id must be a UUID")
	}
	return s.repo.ListAssignments(ctx, &id)
}

// ── bank details ─────────────────────────────────────────────────────────────

func (s *service) SaveBankDetails(ctx context.Context, supportID uuid.UUID, req BankDetailsRequest) (*BankDetails, error) {
	b := &BankDetails{
		SupportID:     supportID,
		AccountName:   req.AccountName,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
	}
	if err := s.repo.SaveBankDetails(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetBankDetails(ctx context.Context, supportID uuid.UUID) (*BankDetails, error) {
	return s.repo.GetBankDetails(ctx, supportID)
}

// ── commissions ──────────────────────────────────────────────────────────────

func (s *service) MonthlyStats(ctx context.Context, supportID uuid.UUID, month string) (*MonthlyStats, error) {
	m, err := ParseMonth(month, s.now())
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.Sales(ctx, &supportID, m.Start, m.End())
	if err != nil {
		return nil, err
	}
	st := &MonthlyStats{SupportID: supportID, Month: m.String(), Vendors: sales,
		Sales: decimal.Zero, Commission: decimal.Zero}
	for i := range st.Vendors {
		v := &st.Vendors[i]
		v.Commission = s.commission(v.Sales)
		st.Orders += v.Orders
		st.Sales = st.Sales.Add(v.Sales)
		st.Commission = st.Commission.Add(v.Commission)
	}
	return st, nil
}

func (s *service) Overview(ctx context.Context, month string) (*Overview, error) {
	m, err := ParseMonth(month, s.now())
	if err != nil {
		return nil, err
	}
	agents, err := s.repo.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.Sales(ctx, nil, m.Start, m.End())
	if err != nil {
		return nil, err
	}

	bySupport := make(map[uuid.UUID][]VendorSales, len(agents))
	for _, v := range sales {
		bySupport[v.SupportID] = append(bySupport[v.SupportID], v)
	}
	ov := &Overview{Month: m.String(), Rate: s.rate, Agents: make([]AgentSummary, 0, len(agents)),
		Sales: decimal.Zero, Commission: decimal.Zero}
	for _, ag := range agents {
		row := AgentSummary{SupportID: ag.ID, FullName: ag.FullName, Email: ag.Email, Code: ag.Code,
			Sales: decimal.Zero, Commission: decimal.Zero}
		if ag.BankDetails != nil {
			row.BankName, row.AccountName, row.AccountNumber =
				ag.BankDetails.BankName, ag.BankDetails.AccountName, ag.BankDetails.AccountNumber
		}
		for _, v := range bySupport[ag.ID] {
			row.Vendors++
			row.Orders += v.Orders
			row.Sales = row.Sales.Add(v.Sales)
			row.Commission = row.Commission.Add(s.commission(v.Sales))
		}
		ov.Sales = ov.Sales.Add(row.Sales)
		ov.Commission = ov.Commission.Add(row.Commission)
		ov.Agents = append(ov.Agents, row)
	}
	return ov, nil
}

var exportHeader = []string{"Full Name", "Email", "Affiliate Code", "Bank Name", "Account Name",
	"Account Number", "Vendors", "Orders", "Total Sales (NGN)", "Commission (NGN)"}

func (s *service) ExportCommissions(ctx context.Context, month string, w io.Writer) (string, error) {
	ov, err := s.Overview(ctx, month)
	if err != nil {
		return "", err
	}
	m, _ := ParseMonth(ov.Month, s.now())

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return "", err
	}
	for _, a := range ov.Agents {
		if err := cw.Write([]string{
			a.FullName, a.Email, a.Code,
			orNotProvided(a.BankName), orNotProvided(a.AccountName), orNotProvided(a.AccountNumber),
			strconv.Itoa(a.Vendors), strconv.Itoa(a.Orders),
			a.Sales.StringFixed(2), a.Commission.StringFixed(2),
		}); err != nil {
			return "", err
		}
	}
	cw.Flush()
	return m.Filename(), cw.Error()
}

func (s *service) commission(sales decimal.Decimal) decimal.Decimal {
	return sales.Mul(s.rate).Round(2)
}

func orNotProvided(v string) string {
	if v == "" {
		return "Not provided"
	}
	return v
}

// codeAlphabet leaves out characters that are easy to misread.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newCode() (string, error) {
	b := make([]byte, 6)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return CodePrefix + string(b), nil
}
