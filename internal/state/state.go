// Package state persists the retained boot counter and screen selection.
package state

import (
	"fmt"

	"github.com/sweeney/wrist-hr/internal/kv"
	"github.com/sweeney/wrist-hr/internal/logic"
)

// Load reads the retained state. Missing keys yield the zero value, which is
// what a device that has never booted carries.
func Load(s kv.Storage) (logic.Retained, error) {
	boots, err := kv.Uint32(s, kv.KeyBootCount, 0)
	if err != nil {
		return logic.Retained{}, fmt.Errorf("load boot count: %w", err)
	}
	screen, err := kv.Uint8(s, kv.KeyScreenMode, uint8(logic.Dashboard))
	if err != nil {
		return logic.Retained{}, fmt.Errorf("load screen mode: %w", err)
	}
	return logic.Retained{BootCount: boots, Screen: logic.ScreenMode(screen)}, nil
}

// Save writes both retained fields in one transaction.
func Save(s kv.Storage, r logic.Retained) error {
	err := s.Update(func(w kv.Writer) error {
		if err := kv.PutUint32(w, kv.KeyBootCount, r.BootCount); err != nil {
			return err
		}
		return kv.PutUint8(w, kv.KeyScreenMode, uint8(r.Screen))
	})
	if err != nil {
		return fmt.Errorf("save retained state: %w", err)
	}
	return nil
}
