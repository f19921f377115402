// Package clusters provides the shared plumbing of the media cluster
// implementations used by content apps and casting clients.
//
// # Architecture
//
// Each cluster lives in its own subpackage with the same layout:
//
//	cluster.go   IDs, enums and typed structs with Value/From<Type> converters
//	handler.go   content-app side: Install(app) registers a command handler
//	client.go    casting side: a typed Client over a Binding
//
// Command fields travel as struct datamodel.Values keyed by context tag.
// Decoders in this package read them with sticky error handling, so a
// handler checks Err once after pulling every field.
//
// # Subpackages
//
//   - clusters/contentlauncher: Content Launcher Cluster (0x050A)
//   - clusters/applicationlauncher: Application Launcher Cluster (0x050C)
//   - clusters/applicationbasic: Application Basic Cluster (0x050D)
//   - clusters/accountlogin: Account Login Cluster (0x050E)
//   - clusters/targetnavigator: Target Navigator Cluster (0x0505)
//   - clusters/mediaplayback: Media Playback Cluster (0x0506)
package clusters
