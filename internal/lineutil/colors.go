package lineutil

// Spacing on a 4-point grid.
const (
	SpacingNone = "none"
	SpacingXS   = "4px"
	SpacingS    = "8px"
	SpacingM    = "12px"
	SpacingL    = "16px"
	SpacingXL   = "20px"
	SpacingXXL  = "24px"

	LineSpacingNormal = "6px"
	LineSpacingLarge  = "8px"
)

// Palette. The primary is a shrine vermilion; text colours keep at least
// 4.5:1 contrast on white.
const (
	ColorVermilion = "#D9482B"
	ColorGold      = "#C9A227"
	ColorMatcha    = "#6A8D4E"
	ColorSakura    = "#F4C7D0"

	ColorWhite   = "#FFFFFF"
	ColorGray200 = "#EFEFEF"
	ColorGray300 = "#DFDFDF"
	ColorGray600 = "#666666"
	ColorGray900 = "#111111"

	ColorPrimary = ColorVermilion
	ColorSuccess = ColorMatcha
	ColorWarning = ColorGold

	ColorText    = ColorGray900
	ColorLabel   = ColorGray600
	ColorSubtext = ColorGray600

	ColorHeroBg        = ColorVermilion
	ColorHeroText      = ColorWhite
	ColorSeparator     = ColorGray300
	ColorProgressTrack = ColorGray200
	ColorProgressFill  = ColorMatcha
)
