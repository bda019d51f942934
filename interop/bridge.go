package interop

import (
	"context"

	"github.com/merchantmoh-debug/ArkLang/runtime"
)

// Bridge exposes the registry through plain int64 handles so the vm
// intrinsics can drive it without knowing about this package.
type Bridge struct {
	reg *Registry
}

// Bridge returns the intrinsic-facing view of the registry.
func (r *Registry) Bridge() *Bridge {
	return &Bridge{reg: r}
}

func (b *Bridge) Load(ctx context.Context, path string) (int64, error) {
	h, err := b.reg.Load(ctx, path)
	return int64(h), err
}

func (b *Bridge) Exports(handle int64) ([]string, error) {
	return b.reg.Exports(Handle(handle))
}

func (b *Bridge) Call(ctx context.Context, handle int64, name string, args []runtime.Value) (runtime.Value, error) {
	return b.reg.Call(ctx, Handle(handle), name, args)
}

func (b *Bridge) Drop(handle int64) bool {
	return b.reg.Drop(Handle(handle))
}
