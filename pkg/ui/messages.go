package ui

import (
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// EventMsg carries one event from the arbitrage hub.
type EventMsg struct {
	Event domain.Event
}

// ScannerStateMsg is sent when the scanner starts or stops.
type ScannerStateMsg struct {
	Running bool
	Mode    string
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}
