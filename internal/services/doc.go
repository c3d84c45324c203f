// Package services implements the dashboard use cases between the transports and
// the chart pipeline.
//
// DashboardService validates and decodes uploads, merges them on their date column,
// runs dataprocessing.Run and assembles the domain.Dashboard returned by every
// surface. It also encodes the merged dataset for download. Pipeline outcomes such
// as a missing date column are reported in the dashboard state; only transport
// level failures (unreadable files, limits) are returned as errors:
//
//	svc := services.NewDashboardService(cfg, providers.Tracer, metrics, logger)
//	pass, err := svc.FromFiles(ctx, services.SourceUpload, files, svc.Options(nil))
//	if err != nil {
//	    errorHandler.HandleError(w, r, err)
//	    return
//	}
//	render.JSON(w, r, pass.Dashboard)
//
// HealthService backs the health, readiness, liveness and version endpoints.
package services
