package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Palette used by the wizard widgets directly.
var (
	ColorCardBackground = color.NRGBA{R: 0x24, G: 0x2B, B: 0x36, A: 0xFF}
	ColorPrimaryAccent  = color.NRGBA{R: 0x4F, G: 0xB3, B: 0xBF, A: 0xFF}
	ColorTextPrimary    = color.NRGBA{R: 0xE6, G: 0xEB, B: 0xF0, A: 0xFF}
	ColorTextSecondary  = color.NRGBA{R: 0x9A, G: 0xA5, B: 0xB1, A: 0xFF}
	ColorBorder         = color.NRGBA{R: 0x3B, G: 0x45, B: 0x52, A: 0xFF}
	ColorStepComplete   = color.NRGBA{R: 0x7C, G: 0xC6, B: 0x8D, A: 0xFF}
)

var (
	colorBackground = color.NRGBA{R: 0x1A, G: 0x1F, B: 0x27, A: 0xFF}
	colorInput      = color.NRGBA{R: 0x2D, G: 0x35, B: 0x42, A: 0xFF}
	colorDisabled   = color.NRGBA{R: 0x55, G: 0x5F, B: 0x6B, A: 0xFF}
)

// themeColors maps fyne color names onto the palette. Names not listed fall
// back to the dark default theme.
var themeColors = map[fyne.ThemeColorName]color.Color{
	theme.ColorNameBackground:        colorBackground,
	theme.ColorNameButton:            ColorPrimaryAccent,
	theme.ColorNameDisabledButton:    colorDisabled,
	theme.ColorNameDisabled:          colorDisabled,
	theme.ColorNameError:             color.NRGBA{R: 0xE5, G: 0x6B, B: 0x6F, A: 0xFF},
	theme.ColorNameFocus:             ColorPrimaryAccent,
	theme.ColorNameForeground:        ColorTextPrimary,
	theme.ColorNameHeaderBackground:  ColorCardBackground,
	theme.ColorNameHover:             color.NRGBA{R: 0x3F, G: 0x96, B: 0xA1, A: 0xFF},
	theme.ColorNameHyperlink:         ColorPrimaryAccent,
	theme.ColorNameInputBackground:   colorInput,
	theme.ColorNameInputBorder:       ColorBorder,
	theme.ColorNameMenuBackground:    ColorCardBackground,
	theme.ColorNameOverlayBackground: ColorCardBackground,
	theme.ColorNamePlaceHolder:       ColorTextSecondary,
	theme.ColorNamePressed:           ColorStepComplete,
	theme.ColorNamePrimary:           ColorPrimaryAccent,
	theme.ColorNameScrollBar:         ColorBorder,
	theme.ColorNameSelection:         color.NRGBA{R: 0x4F, G: 0xB3, B: 0xBF, A: 0x66},
	theme.ColorNameSeparator:         ColorBorder,
	theme.ColorNameShadow:            color.NRGBA{A: 0x66},
	theme.ColorNameSuccess:           ColorStepComplete,
	theme.ColorNameWarning:           color.NRGBA{R: 0xE8, G: 0xC0, B: 0x6A, A: 0xFF},
}

var themeSizes = map[fyne.ThemeSizeName]float32{
	theme.SizeNamePadding:        8,
	theme.SizeNameInnerPadding:   12,
	theme.SizeNameInlineIcon:     20,
	theme.SizeNameScrollBar:      12,
	theme.SizeNameText:           14,
	theme.SizeNameHeadingText:    20,
	theme.SizeNameSubHeadingText: 16,
	theme.SizeNameCaptionText:    12,
	theme.SizeNameInputBorder:    2,
}

// idTheme is the dark theme of the id generator window. It ignores the
// system variant.
type idTheme struct{}

var _ fyne.Theme = idTheme{}

func (idTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	if c, ok := themeColors[name]; ok {
		return c
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (idTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (idTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (idTheme) Size(name fyne.ThemeSizeName) float32 {
	if s, ok := themeSizes[name]; ok {
		return s
	}
	return theme.DefaultTheme().Size(name)
}
