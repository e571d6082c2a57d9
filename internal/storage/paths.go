package storage

import (
	"path"

	"github.com/hashmap-kz/itemflow/internal/itemid"
)

// Ext is the serialization format extension used for every persisted file.
const Ext = "yaml"

// Paths computes the abstract storage paths of the on-disk layout:
//
//	<app_root>/
//	  workspace_params.yaml
//	  <profile>/
//	    profile_params.yaml
//	    <flow_id>/
//	      flow_params.yaml
//	      params_specs.yaml
//	      states_current.yaml
//	      states_goal.yaml
//
// The app root itself is the Store's base; Paths only produces the
// relative parts.
type Paths struct {
	Profile itemid.ProfileID
	Flow    itemid.FlowID
}

func (p Paths) WorkspaceParams() string {
	return "workspace_params." + Ext
}

func (p Paths) ProfileParams() string {
	return path.Join(p.Profile.String(), "profile_params."+Ext)
}

func (p Paths) flowDir() string {
	return path.Join(p.Profile.String(), p.Flow.String())
}

func (p Paths) FlowParams() string {
	return path.Join(p.flowDir(), "flow_params."+Ext)
}

func (p Paths) ParamsSpecs() string {
	return path.Join(p.flowDir(), "params_specs."+Ext)
}

func (p Paths) StatesCurrent() string {
	return path.Join(p.flowDir(), "states_current."+Ext)
}

func (p Paths) StatesGoal() string {
	return path.Join(p.flowDir(), "states_goal."+Ext)
}
