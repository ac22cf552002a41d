package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/tickets"
)

// ScriptTransform runs a JavaScript program that defines
//
//	function create(user, source, roles) { ... }
//	function update(user, source, roles) { ... }
//
// user is a plain object of the draft's fields without the id; user.roles and
// roles are the same array. source exposes login, dn, attributes and the
// helpers get(name) and getAll(name). console.log writes debug logs.
// The runtime has no filesystem or network access.
type ScriptTransform struct {
	name    string
	timeout time.Duration

	mu        sync.Mutex
	vm        *goja.Runtime
	create    goja.Callable
	update    goja.Callable
	parse     goja.Callable
	stringify goja.Callable
	logCtx    context.Context
}

var _ Transform = (*ScriptTransform)(nil)

// ScriptOption configures a ScriptTransform.
type ScriptOption func(*ScriptTransform)

// WithTimeout bounds each create or update call. Zero keeps the default.
func WithTimeout(d time.Duration) ScriptOption {
	return func(s *ScriptTransform) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// LoadScript reads and compiles the script at path.
func LoadScript(path string, opts ...ScriptOption) (*ScriptTransform, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return NewScript(path, string(src), opts...)
}

// NewScript compiles src; name is used in error positions.
func NewScript(name, src string, opts ...ScriptOption) (*ScriptTransform, error) {
	s := &ScriptTransform{
		name:    name,
		timeout: constants.DefaultScriptTimeout,
		vm:      goja.New(),
		logCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.installConsole(); err != nil {
		return nil, err
	}

	program, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, errors.NewParseError("javascript", name, err.Error(), err)
	}
	timer := time.AfterFunc(s.timeout, func() { s.vm.Interrupt("script initialization timed out") })
	_, err = s.vm.RunProgram(program)
	timer.Stop()
	s.vm.ClearInterrupt()
	if err != nil {
		return nil, errors.NewParseError("javascript", name, err.Error(), err)
	}

	var ok bool
	if s.create, ok = goja.AssertFunction(s.vm.Get(string(ModeCreate))); !ok {
		return nil, errors.NewValidationError("mapping.file", name, "script must define function create(user, source, roles)")
	}
	if s.update, ok = goja.AssertFunction(s.vm.Get(string(ModeUpdate))); !ok {
		return nil, errors.NewValidationError("mapping.file", name, "script must define function update(user, source, roles)")
	}

	jsonObj := s.vm.Get("JSON").ToObject(s.vm)
	s.parse, _ = goja.AssertFunction(jsonObj.Get("parse"))
	s.stringify, _ = goja.AssertFunction(jsonObj.Get("stringify"))
	return s, nil
}

func (s *ScriptTransform) installConsole() error {
	console := s.vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			parts = append(parts, a.String())
		}
		logging.FromContext(s.logCtx).Debug().
			Str("script", s.name).
			Msg(strings.Join(parts, " "))
		return goja.Undefined()
	}
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(name, logFn); err != nil {
			return err
		}
	}
	return s.vm.Set("console", console)
}

// Apply runs the script's create or update function against draft.
func (s *ScriptTransform) Apply(ctx context.Context, mode Mode, draft *tickets.Draft, source directory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fn goja.Callable
	switch mode {
	case ModeCreate:
		fn = s.create
	case ModeUpdate:
		fn = s.update
	default:
		return fmt.Errorf("unknown mapping mode %q", mode)
	}

	s.logCtx = ctx
	defer func() { s.logCtx = context.Background() }()

	// pending counts interrupt callbacks that were scheduled and not stopped.
	// The interrupt flag may only be cleared once none of them can still fire.
	var pending sync.WaitGroup
	pending.Add(2)
	timer := time.AfterFunc(s.timeout, func() {
		defer pending.Done()
		s.vm.Interrupt(fmt.Sprintf("mapping %s timed out after %s", mode, s.timeout))
	})
	stop := context.AfterFunc(ctx, func() {
		defer pending.Done()
		s.vm.Interrupt(ctx.Err())
	})
	defer func() {
		if timer.Stop() {
			pending.Done()
		}
		if stop() {
			pending.Done()
		}
		pending.Wait()
		s.vm.ClearInterrupt()
	}()

	user, roles, err := s.userValue(draft)
	if err != nil {
		return err
	}
	src, err := s.sourceValue(source)
	if err != nil {
		return err
	}

	if _, err := fn(goja.Undefined(), user, src, roles); err != nil {
		return s.scriptError(mode, draft.Login, err)
	}

	out, err := s.stringify(goja.Undefined(), user)
	if err != nil {
		return s.scriptError(mode, draft.Login, err)
	}
	if err := json.Unmarshal([]byte(out.String()), draft); err != nil {
		return &errors.ContractError{Mode: string(mode), Login: draft.Login, Message: "user is not a valid draft: " + err.Error()}
	}
	return nil
}

// userValue builds the JS user object and returns it with its roles array.
func (s *ScriptTransform) userValue(draft *tickets.Draft) (goja.Value, goja.Value, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.parse(goja.Undefined(), s.vm.ToValue(string(data)))
	if err != nil {
		return nil, nil, err
	}
	obj := user.ToObject(s.vm)
	roles := obj.Get("roles")
	if roles == nil || goja.IsUndefined(roles) || goja.IsNull(roles) {
		roles = s.vm.NewArray()
		if err := obj.Set("roles", roles); err != nil {
			return nil, nil, err
		}
	}
	return user, roles, nil
}

func (s *ScriptTransform) sourceValue(rec directory.Record) (goja.Value, error) {
	attrs := rec.Attributes
	if attrs == nil {
		attrs = map[string][]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	attrVal, err := s.parse(goja.Undefined(), s.vm.ToValue(string(data)))
	if err != nil {
		return nil, err
	}

	get := func(call goja.FunctionCall) goja.Value {
		v := rec.GetAll(call.Argument(0).String())
		if len(v) == 0 {
			return goja.Null()
		}
		return s.vm.ToValue(v[0])
	}
	getAll := func(call goja.FunctionCall) goja.Value {
		values := rec.GetAll(call.Argument(0).String())
		items := make([]any, len(values))
		for i, v := range values {
			items[i] = v
		}
		return s.vm.NewArray(items...)
	}

	obj := s.vm.NewObject()
	for k, v := range map[string]any{
		"login":              rec.Login,
		"dn":                 rec.DN,
		"attributes":         attrVal,
		"get":                get,
		"getAll":             getAll,
		"getAttributeValue":  get,
		"getAttributeValues": getAll,
	} {
		if err := obj.Set(k, v); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (s *ScriptTransform) scriptError(mode Mode, login string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("mapping %s for %s interrupted: %v", mode, login, interrupted.Value())
	}
	return fmt.Errorf("mapping %s for %s: %w", mode, login, err)
}
