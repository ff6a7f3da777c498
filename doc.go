// Package links2pdf converts web articles listed in a CSV file into PDF
// files using headless Chrome.
//
// # Quick Start
//
// Create a renderer, wrap it in a batch, and run it over a CSV:
//
//	renderer, err := links2pdf.NewPageRenderer(links2pdf.RendererConfig{
//	    Settings: links2pdf.DefaultRenderSettings(),
//	    Cropper:  links2pdf.NewMarginCropper(links2pdf.DefaultCropSettings(), logger),
//	    Logger:   logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch := links2pdf.NewBatch(renderer,
//	    links2pdf.WithWorkers(2),
//	    links2pdf.WithOutputDir("articles"),
//	    links2pdf.WithLogger(logger),
//	)
//	summary, err := batch.Run(ctx, "links.csv")
//
// Per-task failures are counted in the Summary; Run only returns an error
// when the input cannot be read.
//
// # Input
//
// The CSV is UTF-8, optionally with a byte order mark, and has a header row.
// Default column names are 公众号 (channel), 标题 (title), 链接 (link) and
// 日期 (date); override them with WithColumns. Each row becomes:
//
//	<output>/<channel>/<date>_<sanitized title>.pdf
//
// # Rendering
//
// Every attempt launches a fresh Chrome with its own incognito context, so
// workers share no browser state. An attempt:
//
//  1. Navigates and waits for DOMContentLoaded only
//  2. Stops without retry if a verification wall is detected
//  3. Waits for the article container (not fatal if it never appears)
//  4. Scrolls the page so lazy-loaded images load
//  5. Prints the page as A4 with backgrounds
//
// Transient failures are retried with a pause between attempts. After a
// successful print the optional Cropper trims the margins; cropping
// failures keep the uncropped file.
//
// # Browser Requirements
//
// PDF generation requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
//
// Margin cropping shells out to pdfCropMargins (pdf-crop-margins on PATH).
package links2pdf
