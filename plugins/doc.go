// Package plugins hosts optional model add-ons installed through
// core.Service.InstallPlugin. Plugin packages reach the model only through
// the facade types of internal/core and never import pkg/domain directly.
package plugins
