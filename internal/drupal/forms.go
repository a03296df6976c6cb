package drupal

import (
	"context"
	"fmt"
	"strings"
)

// DefaultTextFormat is the text format FillTextareaWithFormat selects when
// none is given.
const DefaultTextFormat = "raw_html"

// Scroll offset that keeps targets clear of the sticky admin toolbar.
const toolbarOffsetY = -30

// OpenVerticalTab opens the vertical tab whose pane has the given id, with or
// without a leading '#'.
func (h *Helper) OpenVerticalTab(ctx context.Context, id string) error {
	selector := fmt.Sprintf(`a[href="#%s"]`, strings.TrimLeft(id, "#"))
	if err := h.browser.ScrollTo(ctx, selector, 0, toolbarOffsetY); err != nil {
		return err
	}
	return h.browser.Click(ctx, selector)
}

// OpenDetails expands a <details> element unless it is already open.
func (h *Helper) OpenDetails(ctx context.Context, selector string) error {
	if err := h.browser.ScrollTo(ctx, selector, 0, toolbarOffsetY); err != nil {
		return err
	}
	_, open, err := h.browser.GrabAttributeFrom(ctx, selector, "open")
	if err != nil {
		return err
	}
	if open {
		return nil
	}
	return h.browser.Click(ctx, selector+" > summary")
}

// FillTextareaWithFormat selects a text format in the formatted field inside
// wrapper and fills its textarea.
func (h *Helper) FillTextareaWithFormat(ctx context.Context, wrapper, text, format string) error {
	if format == "" {
		format = DefaultTextFormat
	}
	if err := h.browser.SelectOption(ctx, wrapper+" .filter-list", format); err != nil {
		return err
	}
	return h.browser.FillField(ctx, wrapper+" .text-full", text)
}
