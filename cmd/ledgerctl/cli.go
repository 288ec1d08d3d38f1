package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	appledger "github.com/residentia/backend/internal/application/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// Exit codes. Domain rejections get their own code so scripts can branch
// on them without parsing stderr.
const (
	exitOK                = 0
	exitFailure           = 1
	exitUsage             = 2
	exitInvalidInput      = 3
	exitNotFound          = 4
	exitInvalidState      = 5
	exitConflict          = 6
	exitInsufficientFunds = 7
	exitDuplicateRequest  = 8
)

type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func(path string) (*config.Config, error)
	// storage overrides the object storage chosen from configuration
	storage  appledger.ObjectStorageService
	validate *validator.Validate
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.LoadFrom,
		validate:   newValidator(),
	}
}

// invocation carries the global flags and the wired app to a command
type invocation struct {
	app       *app
	community uuid.UUID
	actor     *uuid.UUID
	validate  *validator.Validate
}

type command struct {
	path      string
	summary   string
	community bool
	run       func(ctx context.Context, inv *invocation, args []string) (any, error)
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func (c *cli) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	configPath := fs.String("config", "", "path to config.toml")
	community := fs.String("community", "", "community every command is scoped to")
	actor := fs.String("actor", "", "user performing the operation, recorded as created_by")
	fs.Usage = func() { c.usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cmd, rest, ok := lookup(fs.Args())
	if !ok {
		c.usage(fs)
		return exitUsage
	}

	inv := &invocation{validate: c.validate}
	if cmd.community {
		if *community == "" {
			return c.fail(usagef("%s requires -community", cmd.path))
		}
		id, err := parseUUID("community", *community)
		if err != nil {
			return c.fail(err)
		}
		inv.community = id
	}
	if *actor != "" {
		id, err := parseUUID("actor", *actor)
		if err != nil {
			return c.fail(err)
		}
		inv.actor = &id
	}

	cfg, err := c.loadConfig(*configPath)
	if err != nil {
		return c.fail(err)
	}
	a, err := newApp(ctx, cfg, c.storage)
	if err != nil {
		return c.fail(err)
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			fmt.Fprintf(c.stderr, "ledgerctl: shutdown: %v\n", err)
		}
	}()
	inv.app = a

	result, err := cmd.run(ctx, inv, rest)
	if err != nil {
		return c.fail(err)
	}
	if result == nil {
		return exitOK
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return c.fail(err)
	}
	return exitOK
}

func lookup(args []string) (command, []string, bool) {
	if len(args) < 2 {
		return command{}, nil, false
	}
	path := args[0] + " " + args[1]
	for _, cmd := range commands() {
		if cmd.path == path {
			return cmd, args[2:], true
		}
	}
	return command{}, nil, false
}

func (c *cli) usage(fs *flag.FlagSet) {
	fmt.Fprintln(c.stderr, "Usage: ledgerctl [global flags] <resource> <action> [flags]")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(c.stderr, "  %-20s %s\n", cmd.path, cmd.summary)
	}
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Global flags:")
	fs.PrintDefaults()
}

// errorOutput is written to stderr for domain and validation failures
type errorOutput struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// fail reports err on stderr and maps it to an exit code. Domain and
// validation errors are JSON, anything else is a plain message.
func (c *cli) fail(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := errorOutput{
			Code:    shared.CodeInvalidInput,
			Message: "Validation failed",
			Fields:  make(map[string]string, len(verrs)),
		}
		for _, fe := range verrs {
			out.Fields[fe.Field()] = validationMessage(fe)
		}
		c.writeError(out)
		return exitInvalidInput
	}

	if code := shared.CodeOf(err); code != "" {
		c.writeError(errorOutput{Code: code, Message: err.Error()})
	} else {
		fmt.Fprintf(c.stderr, "ledgerctl: %v\n", err)
	}
	return exitCode(err)
}

func (c *cli) writeError(out errorOutput) {
	if err := json.NewEncoder(c.stderr).Encode(out); err != nil {
		fmt.Fprintf(c.stderr, "ledgerctl: %s: %s\n", out.Code, out.Message)
	}
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}

	switch code := shared.CodeOf(err); code {
	case "":
		return exitFailure
	case shared.CodeNotFound:
		return exitNotFound
	case shared.CodeInvalidState:
		return exitInvalidState
	case shared.CodeConflict:
		return exitConflict
	case shared.CodeInsufficientFunds:
		return exitInsufficientFunds
	case shared.CodeDuplicateRequest:
		return exitDuplicateRequest
	default:
		// INVALID_INPUT, INVALID_AMOUNT, INVALID_TITLE and friends
		if strings.HasPrefix(code, "INVALID_") {
			return exitInvalidInput
		}
		return exitFailure
	}
}

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "invalid value"
	}
}

func parseUUID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s is not a valid UUID: %q", name, value))
	}
	return id, nil
}

// uuidValue is an optional UUID flag
type uuidValue struct {
	id *uuid.UUID
}

func (v *uuidValue) String() string {
	if v.id == nil {
		return ""
	}
	return v.id.String()
}

func (v *uuidValue) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid UUID %q", s)
	}
	v.id = &id
	return nil
}

func (v *uuidValue) value() uuid.UUID {
	if v.id == nil {
		return uuid.Nil
	}
	return *v.id
}

// decimalValue is an optional decimal flag. Amounts are parsed exactly,
// never through float64.
type decimalValue struct {
	d *decimal.Decimal
}

func (v *decimalValue) String() string {
	if v.d == nil {
		return ""
	}
	return v.d.String()
}

func (v *decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	v.d = &d
	return nil
}

// parseFlags parses args into fs and rejects stray positional arguments
func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return usagef("%s: unexpected arguments %v", fs.Name(), fs.Args())
	}
	return nil
}

// setFlags returns the names of the flags given on the command line
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func requireFlags(fs *flag.FlagSet, names ...string) error {
	set := setFlags(fs)
	var missing []string
	for _, name := range names {
		if !set[name] {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return usagef("%s: missing required flags %s", fs.Name(), strings.Join(missing, ", "))
	}
	return nil
}
