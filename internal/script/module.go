package script

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/vents/internal/event"
	"github.com/dshills/vents/internal/event/delayed"
)

// Lua type names for the userdata metatables.
const (
	typeEvent    = "vents.event"
	typeOnce     = "vents.once_event"
	typeDelayed  = "vents.delayed"
	typeProperty = "vents.property"
)

// handle is implemented by every userdata value the module hands to Lua.
type handle interface {
	ID() string
	pending() int
	close()
}

type luaEvent struct {
	id string
	ev *event.Event[lua.LValue]
}

func (e *luaEvent) ID() string   { return e.id }
func (e *luaEvent) pending() int { return 0 }
func (e *luaEvent) close()       { e.ev.Close() }

type luaOnce struct {
	id string
	ev *event.OnceEvent[lua.LValue]
}

func (e *luaOnce) ID() string   { return e.id }
func (e *luaOnce) pending() int { return 0 }
func (e *luaOnce) close()       { e.ev.RemoveSubscribers() }

type luaDelayed struct {
	ev *delayed.Event[lua.LValue]

	// gen changes whenever the subscriber is removed or the event closed.
	// A queued delivery runs only if its install generation is current.
	gen atomic.Uint64
}

func (e *luaDelayed) ID() string   { return e.ev.ID() }
func (e *luaDelayed) pending() int { return e.ev.Pending() }

func (e *luaDelayed) close() {
	e.gen.Add(1)
	e.ev.Close()
}

func (e *luaDelayed) remove() {
	e.gen.Add(1)
	e.ev.RemoveSubscribers()
}

// current reports whether a subscriber installed at generation gen is
// still the one the event would deliver to.
func (e *luaDelayed) current(gen uint64) bool {
	return !e.ev.IsClosed() && e.gen.Load() == gen
}

type luaProperty struct {
	id string
	p  *event.Property[lua.LValue]
}

func (p *luaProperty) ID() string   { return p.id }
func (p *luaProperty) pending() int { return 0 }
func (p *luaProperty) close() {
	p.p.OnSet.Close()
	p.p.OnGet.Close()
}

// registerModule installs the global vents table and the userdata
// metatables.
func registerModule(h *Host) {
	L := h.L

	register := func(typeName string, methods map[string]lua.LGFunction) {
		mt := L.NewTypeMetatable(typeName)
		L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), methods))
		L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
			ud := L.CheckUserData(1)
			if hd, ok := ud.Value.(handle); ok {
				L.Push(lua.LString(typeName + ": " + hd.ID()))
				return 1
			}
			L.Push(lua.LString(typeName))
			return 1
		}))
	}

	register(typeEvent, map[string]lua.LGFunction{
		"sub":                h.eventSub,
		"val":                h.eventVal,
		"once":               h.eventOnce,
		"trigger":            h.eventTrigger,
		"remove_subscribers": h.eventRemove,
		"has_subscriber":     h.eventHasSubscriber,
		"close":              h.eventClose,
		"id":                 handleID,
	})
	register(typeOnce, map[string]lua.LGFunction{
		"sub":                h.onceSub,
		"val":                h.onceVal,
		"trigger":            h.onceTrigger,
		"remove_subscribers": h.onceRemove,
		"has_subscriber":     h.onceHasSubscriber,
		"id":                 handleID,
	})
	register(typeDelayed, map[string]lua.LGFunction{
		"sub":                h.delayedSub,
		"val":                h.delayedVal,
		"trigger":            h.delayedTrigger,
		"remove_subscribers": h.delayedRemove,
		"has_subscriber":     h.delayedHasSubscriber,
		"set_delay":          h.delayedSetDelay,
		"delay":              h.delayedDelay,
		"pending":            h.delayedPending,
		"stats":              h.delayedStats,
		"close":              h.delayedClose,
		"id":                 handleID,
	})
	register(typeProperty, map[string]lua.LGFunction{
		"get":    h.propertyGet,
		"set":    h.propertySet,
		"on_set": h.propertyOnSet,
		"on_get": h.propertyOnGet,
		"id":     handleID,
	})

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"event":      h.newEvent,
		"once_event": h.newOnceEvent,
		"delayed":    h.newDelayed,
		"property":   h.newProperty,
	})
	L.SetGlobal("vents", mod)
}

func (h *Host) wrap(L *lua.LState, typeName string, v handle) *lua.LUserData {
	h.track(v)
	ud := L.NewUserData()
	ud.Value = v
	L.SetMetatable(ud, L.GetTypeMetatable(typeName))
	return ud
}

func check[T handle](L *lua.LState, typeName string) T {
	ud := L.CheckUserData(1)
	v, ok := ud.Value.(T)
	if !ok {
		L.ArgError(1, typeName+" expected")
	}
	return v
}

func handleID(L *lua.LState) int {
	ud := L.CheckUserData(1)
	hd, ok := ud.Value.(handle)
	if !ok {
		L.ArgError(1, "vents handle expected")
		return 0
	}
	L.Push(lua.LString(hd.ID()))
	return 1
}

// raise turns an install error into a Lua error at the call site.
func raise(L *lua.LState, err error) int {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// inline calls fn on the running Lua state. Errors unwind to the script
// that triggered the event.
func inline(L *lua.LState, fn *lua.LFunction, withValue bool) func(lua.LValue) {
	return func(v lua.LValue) {
		if withValue {
			L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: false}, v)
			return
		}
		L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: false})
	}
}

// deferred installs the function argument as e's subscriber. Deliveries run on a scheduler
// goroutine, so they only queue the call for the next Pump; the call is
// skipped if the subscriber was removed or the event closed meanwhile.
func (h *Host) deferred(L *lua.LState, e *luaDelayed, withValue bool) error {
	fn := L.CheckFunction(2)
	gen := e.gen.Load()
	return e.ev.Val(func(v lua.LValue) {
		h.inbox.post(delivery{
			owner: e,
			gen:   gen,
			run: func() error {
				if withValue {
					return h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, v)
				}
				return h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
			},
		})
	})
}

// runQueued runs e's queued deliveries from inside a running script and
// raises their errors there. Deliveries of other events stay queued.
func (h *Host) runQueued(L *lua.LState, e *luaDelayed) {
	var errs []error
	for _, d := range h.inbox.take(e) {
		if !d.live() {
			continue
		}
		if err := d.run(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func seconds(d time.Duration) lua.LNumber {
	return lua.LNumber(d.Seconds())
}

func fromSeconds(n lua.LNumber) time.Duration {
	return time.Duration(float64(n) * float64(time.Second))
}

// vents.event([name])
func (h *Host) newEvent(L *lua.LState) int {
	e := &luaEvent{
		id: uuid.NewString(),
		ev: event.New[lua.LValue](event.WithLogger(h.logger), event.WithName(L.OptString(1, ""))),
	}
	L.Push(h.wrap(L, typeEvent, e))
	return 1
}

func (h *Host) eventSub(L *lua.LState) int {
	e := check[*luaEvent](L, typeEvent)
	return raise(L, e.ev.Val(inline(L, L.CheckFunction(2), false)))
}

func (h *Host) eventVal(L *lua.LState) int {
	e := check[*luaEvent](L, typeEvent)
	return raise(L, e.ev.Val(inline(L, L.CheckFunction(2), true)))
}

func (h *Host) eventOnce(L *lua.LState) int {
	e := check[*luaEvent](L, typeEvent)
	return raise(L, e.ev.Once(inline(L, L.CheckFunction(2), true)))
}

func (h *Host) eventTrigger(L *lua.LState) int {
	e := check[*luaEvent](L, typeEvent)
	e.ev.Trigger(L.Get(2))
	return 0
}

func (h *Host) eventRemove(L *lua.LState) int {
	check[*luaEvent](L, typeEvent).ev.RemoveSubscribers()
	return 0
}

func (h *Host) eventHasSubscriber(L *lua.LState) int {
	L.Push(lua.LBool(check[*luaEvent](L, typeEvent).ev.HasSubscriber()))
	return 1
}

func (h *Host) eventClose(L *lua.LState) int {
	check[*luaEvent](L, typeEvent).ev.Close()
	return 0
}

// vents.once_event([name])
func (h *Host) newOnceEvent(L *lua.LState) int {
	e := &luaOnce{
		id: uuid.NewString(),
		ev: event.NewOnce[lua.LValue](event.WithLogger(h.logger), event.WithName(L.OptString(1, ""))),
	}
	L.Push(h.wrap(L, typeOnce, e))
	return 1
}

func (h *Host) onceSub(L *lua.LState) int {
	e := check[*luaOnce](L, typeOnce)
	return raise(L, e.ev.Val(inline(L, L.CheckFunction(2), false)))
}

func (h *Host) onceVal(L *lua.LState) int {
	e := check[*luaOnce](L, typeOnce)
	return raise(L, e.ev.Val(inline(L, L.CheckFunction(2), true)))
}

func (h *Host) onceTrigger(L *lua.LState) int {
	e := check[*luaOnce](L, typeOnce)
	e.ev.Trigger(L.Get(2))
	return 0
}

func (h *Host) onceRemove(L *lua.LState) int {
	check[*luaOnce](L, typeOnce).ev.RemoveSubscribers()
	return 0
}

func (h *Host) onceHasSubscriber(L *lua.LState) int {
	L.Push(lua.LBool(check[*luaOnce](L, typeOnce).ev.HasSubscriber()))
	return 1
}

// vents.delayed([seconds [, name]])
func (h *Host) newDelayed(L *lua.LState) int {
	d := h.delay
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		n := L.CheckNumber(1)
		if n < 0 {
			L.ArgError(1, "delay must not be negative")
			return 0
		}
		d = fromSeconds(n)
	}

	opts := []delayed.Option{
		delayed.WithDelay(d),
		delayed.WithLogger(h.logger),
		delayed.WithName(L.OptString(2, "")),
	}
	if h.scheduler != nil {
		opts = append(opts, delayed.WithScheduler(h.scheduler))
	}

	e := &luaDelayed{ev: delayed.New[lua.LValue](opts...)}
	L.Push(h.wrap(L, typeDelayed, e))
	return 1
}

func (h *Host) delayedSub(L *lua.LState) int {
	return raise(L, h.deferred(L, check[*luaDelayed](L, typeDelayed), false))
}

func (h *Host) delayedVal(L *lua.LState) int {
	return raise(L, h.deferred(L, check[*luaDelayed](L, typeDelayed), true))
}

// With a zero delay the delivery is queued synchronously by Trigger and run
// before trigger returns, so the script sees plain event behavior.
func (h *Host) delayedTrigger(L *lua.LState) int {
	e := check[*luaDelayed](L, typeDelayed)
	e.ev.Trigger(L.Get(2))
	if e.ev.Delay() == 0 {
		h.runQueued(L, e)
	}
	return 0
}

func (h *Host) delayedRemove(L *lua.LState) int {
	check[*luaDelayed](L, typeDelayed).remove()
	return 0
}

func (h *Host) delayedHasSubscriber(L *lua.LState) int {
	L.Push(lua.LBool(check[*luaDelayed](L, typeDelayed).ev.HasSubscriber()))
	return 1
}

func (h *Host) delayedSetDelay(L *lua.LState) int {
	e := check[*luaDelayed](L, typeDelayed)
	n := L.CheckNumber(2)
	if n < 0 {
		L.ArgError(2, "delay must not be negative")
		return 0
	}
	e.ev.SetDelay(fromSeconds(n))
	return 0
}

func (h *Host) delayedDelay(L *lua.LState) int {
	L.Push(seconds(check[*luaDelayed](L, typeDelayed).ev.Delay()))
	return 1
}

func (h *Host) delayedPending(L *lua.LState) int {
	L.Push(lua.LNumber(check[*luaDelayed](L, typeDelayed).ev.Pending()))
	return 1
}

func (h *Host) delayedStats(L *lua.LState) int {
	st := check[*luaDelayed](L, typeDelayed).ev.Stats()
	t := L.CreateTable(0, 8)
	t.RawSetString("triggered", lua.LNumber(st.Triggered))
	t.RawSetString("immediate", lua.LNumber(st.Immediate))
	t.RawSetString("scheduled", lua.LNumber(st.Scheduled))
	t.RawSetString("delivered", lua.LNumber(st.Delivered))
	t.RawSetString("superseded", lua.LNumber(st.Superseded))
	t.RawSetString("after_close", lua.LNumber(st.AfterClose))
	t.RawSetString("no_subscriber", lua.LNumber(st.NoSubscriber))
	t.RawSetString("panicked", lua.LNumber(st.Panicked))
	L.Push(t)
	return 1
}

func (h *Host) delayedClose(L *lua.LState) int {
	check[*luaDelayed](L, typeDelayed).close()
	return 0
}

// vents.property([value])
func (h *Host) newProperty(L *lua.LState) int {
	p := &luaProperty{
		id: uuid.NewString(),
		p:  event.NewProperty[lua.LValue](L.Get(1)),
	}
	L.Push(h.wrap(L, typeProperty, p))
	return 1
}

func (h *Host) propertyGet(L *lua.LState) int {
	L.Push(check[*luaProperty](L, typeProperty).p.Get())
	return 1
}

func (h *Host) propertySet(L *lua.LState) int {
	check[*luaProperty](L, typeProperty).p.Set(L.Get(2))
	return 0
}

func (h *Host) propertyOnSet(L *lua.LState) int {
	p := check[*luaProperty](L, typeProperty)
	return raise(L, p.p.OnSet.Val(inline(L, L.CheckFunction(2), true)))
}

func (h *Host) propertyOnGet(L *lua.LState) int {
	p := check[*luaProperty](L, typeProperty)
	call := inline(L, L.CheckFunction(2), false)
	return raise(L, p.p.OnGet.Sub(func() { call(lua.LNil) }))
}
