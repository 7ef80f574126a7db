// Package module defines the contract between the registry and the systems it
// manages.
//
// A module is created once by its owner, handed to the registry, and from then
// on driven exclusively through the lifecycle hooks: Initialize when loaded,
// Update once per tick while active, Shutdown when unloaded or at teardown.
// Serialize and Deserialize are called by the snapshot collaborator on active
// modules only; the byte format is the module's own business.
package module
