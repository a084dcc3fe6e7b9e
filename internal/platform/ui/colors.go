// internal/platform/ui/colors.go
package ui

import "github.com/pterm/pterm"

// Paleta "Signal": tonos de osciloscopio sobre fondo oscuro.
var (
	// PhosphorGreen - trazas limpias, veredictos sin detección
	PhosphorGreen = pterm.NewRGB(57, 255, 136)

	// AlarmRed - errores de sesión
	AlarmRed = pterm.NewRGB(230, 57, 70)

	// AmberWarn - detecciones y advertencias
	AmberWarn = pterm.NewRGB(255, 183, 3)

	// ScopeGray - texto secundario, filtrados, pendientes
	ScopeGray = pterm.NewRGB(110, 110, 120)

	// TraceWhite - texto principal
	TraceWhite = pterm.NewRGB(236, 236, 236)

	// SweepCyan - elementos activos, spinners
	SweepCyan = pterm.NewRGB(72, 202, 228)

	// CarrierBlue - headers
	CarrierBlue = pterm.NewRGB(2, 62, 138)
)

// Estilos preconfigurados para diferentes contextos
var (
	StylePrimary   = CarrierBlue.ToRGBStyle()
	StyleSuccess   = PhosphorGreen.ToRGBStyle()
	StyleWarning   = AmberWarn.ToRGBStyle()
	StyleError     = AlarmRed.ToRGBStyle()
	StyleSecondary = ScopeGray.ToRGBStyle()
	StyleText      = TraceWhite.ToRGBStyle()
	StyleActive    = SweepCyan.ToRGBStyle()
)
