package main

import (
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/catalog"
	"github.com/skuportal/inventory/app/categories"
	"github.com/skuportal/inventory/app/dashboard"
	"github.com/skuportal/inventory/app/exports"
	"github.com/skuportal/inventory/app/imports"
	"github.com/skuportal/inventory/app/products"
	"github.com/skuportal/inventory/config"
	"github.com/skuportal/inventory/inventory"
	"github.com/skuportal/inventory/listing"
	"github.com/skuportal/inventory/media"
	"github.com/skuportal/inventory/models"
	"github.com/skuportal/inventory/reporting"
	"github.com/skuportal/inventory/snapshot"
)

type routerDeps struct {
	cfg       *config.Config
	store     *models.Store
	service   *inventory.Service
	reports   *reporting.Reader
	db        dashboard.Pinger
	files     *media.Store
	scheduler *snapshot.Scheduler
	logger    *zap.Logger
}

func newRouter(d routerDeps) http.Handler {
	catalogHandler := catalog.NewCatalogHandler(d.store.Products, d.logger)
	categoryHandler := categories.NewCategoryHandler(d.reports, d.logger)
	productHandler := products.NewProductHandler(d.service, d.cfg.Server.UploadMaxBytes, d.logger)
	importHandler := imports.NewImportHandler(d.service, d.cfg.Server.UploadMaxBytes, d.logger)
	exportHandler := exports.NewExportHandler(
		d.reports,
		listing.NewPackager(d.store, d.files.FS(), d.logger),
		d.cfg.Listing.ExportStatus,
		d.logger,
	)
	dashboardHandler := dashboard.NewDashboardHandler(d.reports, d.db, d.scheduler, d.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", catalogHandler.HandleGet)
	mux.HandleFunc("GET /products/{sku}", catalogHandler.HandleGetProduct)

	mux.HandleFunc("POST /products", productHandler.HandleCreate)
	mux.HandleFunc("PUT /products/{id}", productHandler.HandleUpdate)
	mux.HandleFunc("DELETE /products/{id}", productHandler.HandleDelete)
	mux.HandleFunc("POST /products/{id}/archive", productHandler.HandleArchive)
	mux.HandleFunc("POST /products/{id}/unarchive", productHandler.HandleUnarchive)
	mux.HandleFunc("POST /products/{id}/variants", productHandler.HandleCreateVariant)
	mux.HandleFunc("PUT /variants/{id}", productHandler.HandleUpdateVariant)
	mux.HandleFunc("DELETE /variants/{id}", productHandler.HandleDeleteVariant)
	mux.HandleFunc("POST /variants/{id}/images", productHandler.HandleAttachImages)
	mux.HandleFunc("POST /bulk-update", productHandler.HandleBulkUpdate)

	mux.HandleFunc("GET /categories", categoryHandler.HandleGetAll)
	mux.HandleFunc("GET /choices", categoryHandler.HandleGetChoices)

	mux.HandleFunc("POST /import", importHandler.HandleImport)

	mux.HandleFunc("GET /export/csv", exportHandler.HandleCSV)
	mux.HandleFunc("GET /export/xlsx", exportHandler.HandleXLSX)
	mux.HandleFunc("GET /export/to-list", exportHandler.HandleToList)

	mux.HandleFunc("GET /stats", dashboardHandler.HandleStats)
	mux.HandleFunc("GET /healthz", dashboardHandler.HandleHealth)

	// Only product images are public. The snapshot lives elsewhere under the
	// media root.
	mux.Handle("GET "+catalog.MediaPrefix+media.ProductsDir+"/", mediaHandler(d.files, d.logger))

	return mux
}

func mediaHandler(files *media.Store, logger *zap.Logger) http.Handler {
	images, err := fs.Sub(files.FS(), media.ProductsDir)
	if err != nil {
		logger.Error("media directory unavailable", zap.Error(err))
		return http.NotFoundHandler()
	}
	prefix := catalog.MediaPrefix + media.ProductsDir + "/"
	return http.StripPrefix(prefix, http.FileServerFS(images))
}
