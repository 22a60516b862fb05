package api

import (
	"github.com/samcharles93/geodict/pkg/bridge"
	"github.com/samcharles93/geodict/pkg/convert"
	"github.com/samcharles93/geodict/pkg/dict"
)

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}

type NameList struct {
	Object string   `json:"object"`
	Kind   string   `json:"kind"`
	Names  []string `json:"names"`
}

type UpdateResp struct {
	Object string `json:"object"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Result string `json:"result"`
}

func updateResult(r dict.UpdateResult) string {
	if r == dict.Added {
		return "added"
	}
	return "updated"
}

type DeleteResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type BridgeResp struct {
	Object      string        `json:"object"`
	Source      string        `json:"source"`
	Target      string        `json:"target"`
	Description string        `json:"description"`
	Steps       []bridge.Step `json:"steps"`
}

type CoveringResp struct {
	Object          string   `json:"object"`
	Lng             float64  `json:"lng"`
	Lat             float64  `json:"lat"`
	Transformations []string `json:"transformations"`
}

type CreateConversionReq struct {
	Source string          `json:"source"`
	Target string          `json:"target"`
	Policy *convert.Policy `json:"policy,omitempty"`
}

type Conversion struct {
	ID        string              `json:"id"`
	Object    string              `json:"object"`
	CreatedAt int64               `json:"created_at"`
	Source    string              `json:"source"`
	Target    string              `json:"target"`
	Policy    convert.Policy      `json:"policy"`
	Stages    []convert.StageInfo `json:"stages"`
	Locations []convert.Coord     `json:"locations"`
}

type ConvertReq struct {
	ThreeD bool            `json:"three_d"`
	Points []convert.Coord `json:"points"`
}

type PointResult struct {
	convert.Coord
	Status     convert.Status `json:"status"`
	StatusText string         `json:"status_text"`
}

type ConvertResp struct {
	Object string        `json:"object"`
	ID     string        `json:"id"`
	Points []PointResult `json:"points"`
	// Worst is the most severe status of the batch: any hard failure, else
	// the largest soft one.
	Worst convert.Status `json:"worst"`
}
