package main

import (
	"os"

	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/client"
	"redshift-grafana-plugin/pkg/config"
	"redshift-grafana-plugin/pkg/constant"
	"redshift-grafana-plugin/pkg/editor"
	"redshift-grafana-plugin/pkg/plugin"
	"redshift-grafana-plugin/pkg/registration"
)

func main() {
	configEditor := config.Editor{}
	queryEditor := editor.Factory{}

	descriptor := registration.Descriptor{
		ID: constant.PluginID,
		NewDataSource: plugin.NewFactory(plugin.Options{
			ConfigEditor:  configEditor,
			QueryEditor:   queryEditor,
			ClientFactory: client.NewDefaultClientFactory(),
		}),
		ConfigEditor: configEditor,
		QueryEditor:  queryEditor,
	}

	if err := registration.Serve(descriptor); err != nil {
		log.DefaultLogger.Error(err.Error())
		os.Exit(1)
	}
}
