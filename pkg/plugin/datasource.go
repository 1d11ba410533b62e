// Package plugin implements the Redshift data source instance Grafana talks
// to: data queries, health checks and the resources the query editor calls.
package plugin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/datasource"
	"github.com/grafana/grafana-plugin-sdk-go/backend/instancemgmt"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/backend/resource/httpadapter"
	"golang.org/x/sync/errgroup"

	"redshift-grafana-plugin/pkg/api/query"
	"redshift-grafana-plugin/pkg/client"
	"redshift-grafana-plugin/pkg/config"
	"redshift-grafana-plugin/pkg/constant"
	"redshift-grafana-plugin/pkg/editor"
	"redshift-grafana-plugin/pkg/handler"
	"redshift-grafana-plugin/pkg/health"
	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/ratelimit"
	"redshift-grafana-plugin/pkg/registration"
	"redshift-grafana-plugin/pkg/schema"
)

var (
	_ backend.QueryDataHandler      = (*Datasource)(nil)
	_ backend.CheckHealthHandler    = (*Datasource)(nil)
	_ backend.CallResourceHandler   = (*Datasource)(nil)
	_ instancemgmt.InstanceDisposer = (*Datasource)(nil)
)

// Options carries the collaborators a data source instance is built from.
// Zero values are replaced by the production implementations.
type Options struct {
	ConfigEditor  registration.ConfigEditor
	QueryEditor   registration.QueryEditor
	ClientFactory client.ClientFactory
}

func (o Options) withDefaults() Options {
	if o.ConfigEditor == nil {
		o.ConfigEditor = config.Editor{}
	}
	if o.QueryEditor == nil {
		o.QueryEditor = editor.Factory{}
	}
	if o.ClientFactory == nil {
		o.ClientFactory = client.NewDefaultClientFactory()
	}
	return o
}

// NewFactory returns the instance factory handed to the plugin SDK.
func NewFactory(opts Options) datasource.InstanceFactoryFunc {
	return func(ctx context.Context, settings backend.DataSourceInstanceSettings) (instancemgmt.Instance, error) {
		ds, err := NewDatasource(ctx, settings, opts)
		if err != nil {
			return nil, err
		}
		return ds, nil
	}
}

// Datasource is one configured Redshift data source.
type Datasource struct {
	backend.CallResourceHandler

	settings      *models.Settings
	executor      query.StatementExecutor
	schemas       *schema.Service
	configEditor  registration.ConfigEditor
	queryEditor   registration.QueryEditor
	clientFactory client.ClientFactory
	router        http.Handler

	// initErr is set when the settings could not produce a client. The
	// instance still exists so health checks and queries can report it.
	initErr error
}

// NewDatasource creates a new instance of the Redshift data source. It is
// called by the plugin SDK whenever the data source settings change.
func NewDatasource(ctx context.Context, instanceSettings backend.DataSourceInstanceSettings, opts Options) (*Datasource, error) {
	opts = opts.withDefaults()
	logger := log.DefaultLogger.FromContext(ctx)

	d := &Datasource{
		configEditor:  opts.ConfigEditor,
		queryEditor:   opts.QueryEditor,
		clientFactory: opts.ClientFactory,
	}
	d.router = d.routes()
	d.CallResourceHandler = httpadapter.New(d.router)

	settings, err := opts.ConfigEditor.Load(instanceSettings)
	if err != nil {
		logger.Warn("Failed to load data source settings", "datasourceID", instanceSettings.ID, "error", err)
		d.initErr = err
		return d, nil
	}
	d.settings = settings

	if err := opts.ConfigEditor.Validate(settings); err != nil {
		logger.Warn("Invalid data source configuration", "datasourceID", instanceSettings.ID, "error", err)
		d.initErr = err
		return d, nil
	}

	api, err := opts.ClientFactory.NewClient(ctx, settings)
	if err != nil {
		logger.Error("Failed to create Redshift Data API client", "datasourceID", instanceSettings.ID, "error", err)
		d.initErr = err
		return d, nil
	}

	limiter := ratelimit.NewRateLimiter(constant.StatementsPerSecond, constant.StatementBurst)
	d.executor = query.NewExecutor(api, settings, query.WithRateLimiter(limiter))
	d.schemas = schema.NewService(d.executor)

	logger.Debug("Redshift data source instance created", "datasourceID", instanceSettings.ID, "serverless", settings.Serverless())
	return d, nil
}

// Dispose cleans up resources when a data source instance is replaced.
func (d *Datasource) Dispose() {
	log.DefaultLogger.Debug("Redshift data source instance disposed")
}

// QueryData runs the queries of a request concurrently, at most
// MaxConcurrentQueries at a time. Each query gets its own response; a failed
// query never fails the request.
func (d *Datasource) QueryData(ctx context.Context, req *backend.QueryDataRequest) (*backend.QueryDataResponse, error) {
	response := backend.NewQueryDataResponse()

	if d.initErr != nil {
		msg := fmt.Sprintf("data source is not configured correctly: %s", d.initErr.Error())
		for _, q := range req.Queries {
			response.Responses[q.RefID] = backend.ErrDataResponse(backend.StatusBadRequest, msg)
		}
		return response, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(constant.MaxConcurrentQueries)

	for _, q := range req.Queries {
		g.Go(func() error {
			res := handler.HandleQuery(ctx, d.executor, q)
			mu.Lock()
			response.Responses[q.RefID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return response, nil
}

// CheckHealth tests the connection using the settings in the request, which
// may be newer than the ones this instance was built from.
func (d *Datasource) CheckHealth(ctx context.Context, req *backend.CheckHealthRequest) (*backend.CheckHealthResult, error) {
	if req.PluginContext.DataSourceInstanceSettings == nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: "Data source settings are missing from the health check request.",
		}, nil
	}

	result, err := health.ExecuteHealthCheck(ctx, *req.PluginContext.DataSourceInstanceSettings, d.configEditor, d.clientFactory)
	if err != nil {
		log.DefaultLogger.FromContext(ctx).Error("Health check failed internally", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Health check encountered an internal error: %s", err.Error()),
		}, nil
	}
	return result, nil
}
