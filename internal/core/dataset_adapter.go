package core

import "biodivcore/pkg/datasetapi"

func newDatasetTemplateFromAPI(plugin string, template datasetapi.Template) (DatasetTemplate, error) {
	host, err := datasetapi.NewHostTemplate(plugin, template)
	if err != nil {
		return DatasetTemplate{}, err
	}
	return DatasetTemplate{Template: host.Template(), Plugin: host.Plugin(), host: &host}, nil
}

func newDatasetTemplateRuntime(template DatasetTemplate) datasetapi.TemplateRuntime {
	return template.host
}
