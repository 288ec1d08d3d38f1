package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	appledger "github.com/residentia/backend/internal/application/ledger"
	"github.com/residentia/backend/internal/domain/ledger"
	"go.uber.org/zap"
)

func commands() []command {
	return []command{
		{path: "account create", summary: "Open an account with a zero balance", community: true, run: accountCreate},
		{path: "account get", summary: "Show an account", community: true, run: accountGet},
		{path: "account list", summary: "List the community's accounts", community: true, run: accountList},
		{path: "account movements", summary: "List the balance journal of an account", community: true, run: accountMovements},
		{path: "account reconcile", summary: "Compare a balance with its paid entries", community: true, run: accountReconcile},

		{path: "payment create", summary: "Record a payment", community: true, run: paymentCreate},
		{path: "payment edit", summary: "Edit a payment", community: true, run: paymentEdit},
		{path: "payment get", summary: "Show a payment", community: true, run: paymentGet},
		{path: "payment list", summary: "List payments", community: true, run: paymentList},
		{path: "payment voucher", summary: "Get a download link for a payment voucher", community: true, run: paymentVoucher},

		{path: "cashout create", summary: "Record a cashout", community: true, run: cashoutCreate},
		{path: "cashout edit", summary: "Edit a cashout", community: true, run: cashoutEdit},
		{path: "cashout get", summary: "Show a cashout", community: true, run: cashoutGet},
		{path: "cashout list", summary: "List cashouts", community: true, run: cashoutList},
		{path: "cashout receipt", summary: "Get a download link for a cashout receipt", community: true, run: cashoutReceipt},

		{path: "voucher upload", summary: "Upload a voucher or receipt file", community: true, run: voucherUpload},
		{path: "voucher presign", summary: "Reserve a key and get a presigned upload URL", community: true, run: voucherPresign},
		{path: "voucher discard", summary: "Delete an unattached voucher file", community: true, run: voucherDiscard},
		{path: "storage init", summary: "Create the voucher bucket if missing", run: storageInit},

		{path: "relay run", summary: "Relay outbox events until interrupted", run: relayRun},
		{path: "relay once", summary: "Run a single relay pass", run: relayOnce},
		{path: "relay status", summary: "Count outbox entries by status", run: relayStatus},
		{path: "relay dead", summary: "List dead outbox entries", run: relayDead},
		{path: "relay requeue", summary: "Requeue a dead outbox entry, or all with -all", run: relayRequeue},
	}
}

type pageFlags struct {
	page     int
	pageSize int
}

func (p *pageFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&p.page, "page", 1, "page number")
	fs.IntVar(&p.pageSize, "page-size", 20, "entries per page (max 200)")
}

func (inv *invocation) listQuery(p pageFlags) appledger.ListQuery {
	return appledger.ListQuery{
		CommunityID: inv.community,
		Page:        p.page,
		PageSize:    p.pageSize,
	}
}

func parseStatus(s string) (*ledger.Status, error) {
	if s == "" {
		return nil, nil
	}
	status := ledger.Status(strings.ToUpper(s))
	if !status.IsValid() {
		return nil, usagef("status must be pending or paid, got %q", s)
	}
	return &status, nil
}

// statusOrDefault leaves the status empty when none was given so the
// service applies its default
func statusOrDefault(st *ledger.Status) ledger.Status {
	if st == nil {
		return ""
	}
	return *st
}

func parseKind(s string) ledger.SourceType {
	return ledger.SourceType(strings.ToUpper(s))
}

func idFlag(fs *flag.FlagSet) *uuidValue {
	id := &uuidValue{}
	fs.Var(id, "id", "record ID")
	return id
}

// Accounts

func accountCreate(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("account create", flag.ContinueOnError)
	name := fs.String("name", "", "account name")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	cmd := appledger.NewAccount{CommunityID: inv.community, Name: *name, ActorID: inv.actor}
	if err := inv.validate.Struct(cmd); err != nil {
		return nil, err
	}
	return inv.app.accounts.CreateAccount(ctx, cmd)
}

func accountGet(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("account get", flag.ContinueOnError)
	id := idFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return inv.app.accounts.GetAccount(ctx, inv.community, id.value())
}

func accountList(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("account list", flag.ContinueOnError)
	var p pageFlags
	p.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	q := inv.listQuery(p)
	if err := inv.validate.Struct(q); err != nil {
		return nil, err
	}
	return inv.app.accounts.ListAccounts(ctx, q)
}

func accountMovements(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("account movements", flag.ContinueOnError)
	id := idFlag(fs)
	var p pageFlags
	p.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}

	q := inv.listQuery(p)
	if err := inv.validate.Struct(q); err != nil {
		return nil, err
	}
	return inv.app.accounts.ListMovements(ctx, inv.community, id.value(), q)
}

func accountReconcile(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("account reconcile", flag.ContinueOnError)
	id := idFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return inv.app.accounts.Reconcile(ctx, inv.community, id.value())
}

// Payments

func paymentCreate(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("payment create", flag.ContinueOnError)
	account := &uuidValue{}
	fs.Var(account, "account", "account credited by the payment")
	title := fs.String("title", "", "payment title")
	amount := &decimalValue{}
	fs.Var(amount, "amount", "positive amount, up to 4 decimal places")
	status := fs.String("status", "pending", "pending or paid")
	voucher := fs.String("voucher", "", "voucher file to upload and attach")
	residence := &uuidValue{}
	fs.Var(residence, "residence", "residence the payment belongs to")
	resident := &uuidValue{}
	fs.Var(resident, "resident", "resident who paid")
	idemKey := fs.String("idempotency-key", "", "reject a repeated create with the same key")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "account", "title", "amount"); err != nil {
		return nil, err
	}
	st, err := parseStatus(*status)
	if err != nil {
		return nil, err
	}

	cmd := appledger.NewPayment{
		CommunityID:    inv.community,
		AccountID:      account.value(),
		Title:          *title,
		Amount:         *amount.d,
		Status:         statusOrDefault(st),
		ResidenceID:    residence.id,
		ResidentID:     resident.id,
		ActorID:        inv.actor,
		IdempotencyKey: *idemKey,
	}
	if err := inv.validate.Struct(cmd); err != nil {
		return nil, err
	}

	var created *appledger.PaymentResponse
	err = inv.withVoucher(ctx, ledger.SourceTypePayment, *voucher, func(key string) error {
		cmd.VoucherKey = key
		created, err = inv.app.payments.CreatePayment(ctx, cmd)
		return err
	})
	return created, err
}

func paymentEdit(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("payment edit", flag.ContinueOnError)
	id := idFlag(fs)
	title := fs.String("title", "", "new title")
	amount := &decimalValue{}
	fs.Var(amount, "amount", "new amount, only while pending")
	status := fs.String("status", "", "pending or paid")
	voucher := fs.String("voucher", "", "voucher file to upload and attach")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	st, err := parseStatus(*status)
	if err != nil {
		return nil, err
	}

	set := setFlags(fs)
	cmd := appledger.EditPayment{
		CommunityID: inv.community,
		ID:          id.value(),
		Amount:      amount.d,
		Status:      st,
		ActorID:     inv.actor,
	}
	if set["title"] {
		cmd.Title = title
	}
	if err := inv.validate.Struct(cmd); err != nil {
		return nil, err
	}

	var updated *appledger.PaymentResponse
	err = inv.withVoucher(ctx, ledger.SourceTypePayment, *voucher, func(key string) error {
		if key != "" {
			cmd.VoucherKey = &key
		}
		updated, err = inv.app.payments.EditPayment(ctx, cmd)
		return err
	})
	return updated, err
}

func paymentGet(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("payment get", flag.ContinueOnError)
	id := idFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return inv.app.payments.GetPayment(ctx, inv.community, id.value())
}

func paymentList(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("payment list", flag.ContinueOnError)
	account := &uuidValue{}
	fs.Var(account, "account", "only payments of this account")
	status := fs.String("status", "", "only pending or paid payments")
	var p pageFlags
	p.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	st, err := parseStatus(*status)
	if err != nil {
		return nil, err
	}

	q := inv.listQuery(p)
	q.AccountID = account.id
	q.Status = st
	if err := inv.validate.Struct(q); err != nil {
		return nil, err
	}
	return inv.app.payments.GetAllPayments(ctx, q)
}

func paymentVoucher(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("payment voucher", flag.ContinueOnError)
	id := idFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return inv.app.vouchers.PaymentVoucherURL(ctx, inv.community, id.value())
}

// Cashouts

func cashoutCreate(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("cashout create", flag.ContinueOnError)
	account := &uuidValue{}
	fs.Var(account, "account", "account debited by the cashout")
	title := fs.String("title", "", "cashout title")
	amount := &decimalValue{}
	fs.Var(amount, "amount", "positive amount, up to 4 decimal places")
	status := fs.String("status", "pending", "pending or paid")
	receipt := fs.String("receipt", "", "receipt file to upload and attach")
	provider := &uuidValue{}
	fs.Var(provider, "provider", "provider that was paid")
	expense := &uuidValue{}
	fs.Var(expense, "expense", "expense the cashout settles")
	idemKey := fs.String("idempotency-key", "", "reject a repeated create with the same key")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "account", "title", "amount"); err != nil {
		return nil, err
	}
	st, err := parseStatus(*status)
	if err != nil {
		return nil, err
	}

	cmd := appledger.NewCashout{
		CommunityID:    inv.community,
		AccountID:      account.value(),
		Title:          *title,
		Amount:         *amount.d,
		Status:         statusOrDefault(st),
		ProviderID:     provider.id,
		ExpenseID:      expense.id,
		ActorID:        inv.actor,
		IdempotencyKey: *idemKey,
	}
	if err := inv.validate.Struct(cmd); err != nil {
		return nil, err
	}

	var created *appledger.CashoutResponse
	err = inv.withVoucher(ctx, ledger.SourceTypeCashout, *receipt, func(key string) error {
		cmd.ReceiptKey = key
		created, err = inv.app.cashouts.CreateCashout(ctx, cmd)
		return err
	})
	return created, err
}

func cashoutEdit(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("cashout edit", flag.ContinueOnError)
	id := idFlag(fs)
	title := fs.String("title", "", "new title")
	amount := &decimalValue{}
	fs.Var(amount, "amount", "new amount, only while pending")
	status := fs.String("status", "", "pending or paid")
	receipt := fs.String("receipt", "", "receipt file to upload and attach")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	st, err := parseStatus(*status)
	if err != nil {
		return nil, err
	}

	set := setFlags(fs)
	cmd := appledger.EditCashout{
		CommunityID: inv.community,
		ID:          id.value(),
		Amount:      amount.d,
		Status:      st,
		ActorID:     inv.actor,
	}
	if set["title"] {
		cmd.Title = title
	}
	if err := inv.validate.Struct(cmd); err != nil {
		return nil, err
	}

	var updated *appledger.CashoutResponse
	err = inv.withVoucher(ctx, ledger.SourceTypeCashout, *receipt, func(key string) error {
		if key != "" {
			cmd.ReceiptKey = &key
		}
		updated, err = inv.app.cashouts.EditCashout(ctx, cmd)
		return err
	})
	return updated, err
}

func cashoutGet(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("cashout get", flag.ContinueOnError)
	id := idFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return inv.app.cashouts.GetCashout(ctx, inv.community, id.value())
}

func cashoutList(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("cashout list", flag.ContinueOnError)
	account := &uuidValue{}
	fs.Var(account, "account", "only cashouts of this account")
	status := fs.String("status", "", "only pending or paid cashouts")
	var p pageFlags
	p.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	st, err := parseStatus(*status)
	if err != nil {
		return nil, err
	}

	q := inv.listQuery(p)
	q.AccountID = account.id
	q.Status = st
	if err := inv.validate.Struct(q); err != nil {
		return nil, err
	}
	return inv.app.cashouts.GetAllCashouts(ctx, q)
}

func cashoutReceipt(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("cashout receipt", flag.ContinueOnError)
	id := idFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return inv.app.vouchers.CashoutReceiptURL(ctx, inv.community, id.value())
}

// Vouchers

type uploadedVoucher struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func voucherUpload(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("voucher upload", flag.ContinueOnError)
	kind := fs.String("kind", "payment", "payment or cashout")
	file := fs.String("file", "", "file to upload")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "file"); err != nil {
		return nil, err
	}
	return inv.upload(ctx, parseKind(*kind), *file)
}

func voucherPresign(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("voucher presign", flag.ContinueOnError)
	kind := fs.String("kind", "payment", "payment or cashout")
	fileName := fs.String("file-name", "", "name of the file the client will upload")
	contentType := fs.String("content-type", "", "content type the client will upload")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "file-name", "content-type"); err != nil {
		return nil, err
	}
	return inv.app.vouchers.InitiateUpload(ctx, inv.community, parseKind(*kind), *fileName, *contentType)
}

func voucherDiscard(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("voucher discard", flag.ContinueOnError)
	key := fs.String("key", "", "object key returned by upload or presign")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := requireFlags(fs, "key"); err != nil {
		return nil, err
	}
	if err := inv.app.vouchers.Discard(ctx, inv.community, *key); err != nil {
		return nil, err
	}
	return map[string]string{"discarded": *key}, nil
}

func (inv *invocation) upload(ctx context.Context, kind ledger.SourceType, path string) (*uploadedVoucher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voucher file: %w", err)
	}
	contentType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")

	req := appledger.VoucherUpload{
		CommunityID: inv.community,
		Kind:        kind,
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}
	if err := inv.validate.Struct(req); err != nil {
		return nil, err
	}
	key, err := inv.app.vouchers.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	return &uploadedVoucher{Key: key, ContentType: contentType, Size: len(data)}, nil
}

// withVoucher uploads path, when given, and passes its key to fn. The file
// is deleted again if fn fails so rejected entries leave no orphans.
func (inv *invocation) withVoucher(ctx context.Context, kind ledger.SourceType, path string, fn func(key string) error) error {
	if path == "" {
		return fn("")
	}

	uploaded, err := inv.upload(ctx, kind, path)
	if err != nil {
		return err
	}
	if err := fn(uploaded.Key); err != nil {
		if derr := inv.app.vouchers.Discard(context.WithoutCancel(ctx), inv.community, uploaded.Key); derr != nil {
			inv.app.logger.Warn("failed to discard voucher of rejected entry",
				zap.String("key", uploaded.Key),
				zap.Error(derr),
			)
		}
		return err
	}
	return nil
}

// storageInit creates the bucket. The in-memory store needs nothing.
func storageInit(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("storage init", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	type bucketEnsurer interface {
		EnsureBucket(ctx context.Context) error
		Bucket() string
	}
	s3, ok := inv.app.storage.(bucketEnsurer)
	if !ok {
		return map[string]string{"storage": "memory"}, nil
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"storage": "s3", "bucket": s3.Bucket()}, nil
}
