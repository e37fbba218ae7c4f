package engine

import (
	"maps"

	"github.com/roach88/contractcfg/internal/ir"
)

// Action types understood by the presentation layer.
const (
	ActionWindowClose = "act_window_close"
	ActionWindow      = "act_window"
)

// CloseAction closes the current configurator editor.
func CloseAction() ir.Action {
	return ir.Action{Type: ActionWindowClose}
}

// NewConfigurationAction opens a blank configurator editor for a new line of
// the contract. ctx is passed through to the editor; the contract id is
// added as the default contract of the new line.
func (e *Engine) NewConfigurationAction(ctx map[string]string) ir.Action {
	c := make(map[string]string, len(ctx)+1)
	maps.Copy(c, ctx)
	c["default_contract_id"] = e.forest.Contract().ID
	return ir.Action{
		Type:     ActionWindow,
		Name:     "Configure",
		ResModel: "contract.line",
		ViewMode: "form",
		Target:   "new",
		Context:  c,
	}
}
