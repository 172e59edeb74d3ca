// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package preview decides whether a request may see unpublished content.
package preview

// SessionKey is the session key under which the request layer stores the
// preview ref.
const SessionKey = "preview_ref"

// ExitAction names the request-layer action that ends a preview.
const ExitAction = "exit-preview"

// DefaultExitPath is where clients post to leave preview mode.
const DefaultExitPath = "/api/v1/preview/exit"

// NavigationContext carries the per-request preview state. It is built by the
// request layer from the session and discarded after the response.
type NavigationContext struct {
	PreviewRef string `json:"preview_ref,omitempty"`
}

// Previewing reports whether a preview ref is present.
func (nc NavigationContext) Previewing() bool {
	return nc.PreviewRef != ""
}

// ExitContract tells the request layer how to leave preview mode.
type ExitContract struct {
	Action     string `json:"action"`
	Path       string `json:"path"`
	SessionKey string `json:"session_key"`
}

// Decision is the outcome of Authorize.
type Decision struct {
	// Ref is the content version to read; empty means published content.
	Ref   string       `json:"ref,omitempty"`
	Draft bool         `json:"draft"`
	Exit  ExitContract `json:"exit"`
}

// Gate authorizes draft reads. It never touches session storage.
type Gate struct {
	exitPath string
}

// NewGate creates a Gate. An empty exitPath uses DefaultExitPath.
func NewGate(exitPath string) *Gate {
	if exitPath == "" {
		exitPath = DefaultExitPath
	}
	return &Gate{exitPath: exitPath}
}

// Authorize returns a draft decision only when nc carries a preview ref.
// The ref is passed through unchanged; the repository validates it.
func (g *Gate) Authorize(nc NavigationContext) Decision {
	d := Decision{Exit: g.exitContract()}
	if nc.PreviewRef == "" {
		return d
	}
	d.Ref = nc.PreviewRef
	d.Draft = true
	return d
}

// Clear returns nc with the preview ref removed.
func (g *Gate) Clear(nc NavigationContext) NavigationContext {
	nc.PreviewRef = ""
	return nc
}

func (g *Gate) exitContract() ExitContract {
	return ExitContract{
		Action:     ExitAction,
		Path:       g.exitPath,
		SessionKey: SessionKey,
	}
}
