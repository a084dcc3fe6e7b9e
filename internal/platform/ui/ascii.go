// internal/platform/ui/ascii.go
package ui

// BannerCompact se muestra sobre el header en modo interactivo
const BannerCompact = `
 ┌─┐┬─┐┌─┐─┐ ┬┬ ┬┬  ┌─┐┌┐┌┌─┐
 ├─┘├┬┘│ │┌┴┬┘└┬┘│  ├┤ │││└─┐
 ┴  ┴└─└─┘┴ └─ ┴ ┴─┘└─┘┘└┘└─┘`

// BannerMinimal para terminales estrechas
const BannerMinimal = `[ proxylens ]`

// minBannerWidth ancho mínimo para el banner compacto
const minBannerWidth = 40

// Banner elige el banner según el ancho de la terminal
func Banner(width int) string {
	if width > 0 && width < minBannerWidth {
		return BannerMinimal
	}
	return BannerCompact
}
