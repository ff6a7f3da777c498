package links2pdf

import (
	"context"
	"fmt"
)

// activateLazyLoad scrolls the page so deferred images swap in their real
// sources before printing. The bottom/top loop stops when no pending image
// remains or the budget is spent; a stepped pass over the full height then
// catches images that only load when they enter the viewport.
func (r *PageRenderer) activateLazyLoad(ctx context.Context, s browserSession) error {
	ll := r.settings.LazyLoad

	if ll.PendingSelector != "" && ll.MaxWait > 0 {
		if err := r.drainPendingImages(ctx, s, ll); err != nil {
			return err
		}
	}

	pageHeight, viewportHeight, err := s.Dimensions()
	if err != nil {
		return fmt.Errorf("measuring page: %w", err)
	}

	step := viewportHeight * ll.StepFraction
	if step >= 1 {
		// The last step is clamped to the page height, so the bottom is
		// always visited even when the height is a multiple of step.
		steps := int(pageHeight/step) + 1
		for i := range steps {
			y := min(float64(i)*step, pageHeight)
			if err := s.ScrollTo(y); err != nil {
				return fmt.Errorf("scrolling to %.0f: %w", y, err)
			}
			if err := r.sleep(ctx, ll.StepPause); err != nil {
				return err
			}
		}
	}

	if err := s.ScrollTo(0); err != nil {
		return fmt.Errorf("scrolling to top: %w", err)
	}
	return r.sleep(ctx, ll.Settle)
}

func (r *PageRenderer) drainPendingImages(ctx context.Context, s browserSession, ll LazyLoadSettings) error {
	deadline := r.now().Add(ll.MaxWait)

	for r.now().Before(deadline) {
		pending, err := s.CountElements(ll.PendingSelector)
		if err != nil {
			return fmt.Errorf("counting pending images: %w", err)
		}
		if pending == 0 {
			return nil
		}
		r.logger.Debug("waiting for lazy images", "pending", pending)

		pageHeight, _, err := s.Dimensions()
		if err != nil {
			return fmt.Errorf("measuring page: %w", err)
		}
		if err := s.ScrollTo(pageHeight); err != nil {
			return fmt.Errorf("scrolling to bottom: %w", err)
		}
		if err := r.sleep(ctx, ll.PollInterval); err != nil {
			return err
		}
		if err := s.ScrollTo(0); err != nil {
			return fmt.Errorf("scrolling to top: %w", err)
		}
		if err := r.sleep(ctx, ll.PollInterval); err != nil {
			return err
		}
	}

	r.logger.Debug("lazy image budget spent", "budget", ll.MaxWait)
	return nil
}
