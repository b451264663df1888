// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Product type values carried in Product.ProductType.
const (
	ProductScience   = "SCIENCE"
	ProductAuxiliary = "AUXILIARY"
	ProductPreview   = "PREVIEW"
	ProductInfo      = "INFO"
)

// MinimumRecommended is the group description of the archive's recommended subset.
const MinimumRecommended = "Minimum Recommended Products"

// Product is one downloadable file attached to an observation.
type Product struct {
	ObsID       ID     `json:"obsID" yaml:"obsid"`
	ObsIDName   string `json:"obs_id" yaml:"obs_id"`
	ParentObsID ID     `json:"parent_obsid,omitempty" yaml:"parent_obsid,omitempty"`
	Collection  string `json:"obs_collection" yaml:"obs_collection"`

	// ProductType is the file category (SCIENCE, AUXILIARY, PREVIEW, INFO).
	ProductType string `json:"productType" yaml:"product_type"`

	GroupDescription    string `json:"productGroupDescription,omitempty" yaml:"group_description,omitempty"`
	SubGroupDescription string `json:"productSubGroupDescription,omitempty" yaml:"subgroup_description,omitempty"`
	Description         string `json:"description,omitempty" yaml:"description,omitempty"`

	// DataURI identifies the file to the download endpoint (e.g. "mast:JWST/product/x_cal.fits").
	DataURI  string `json:"dataURI" yaml:"data_uri"`
	Filename string `json:"productFilename" yaml:"filename"`
	Size     int64  `json:"size" yaml:"size"`

	CalibLevel Level  `json:"calib_level" yaml:"calib_level"`
	ProposalID string `json:"proposal_id,omitempty" yaml:"proposal_id,omitempty"`
	DataRights string `json:"dataRights,omitempty" yaml:"data_rights,omitempty"`
}

// DownloadStatus is the outcome of a single file request.
type DownloadStatus string

const (
	StatusComplete DownloadStatus = "COMPLETE"
	StatusSkipped  DownloadStatus = "SKIPPED"
	StatusError    DownloadStatus = "ERROR"
)

// DownloadRecord reports what happened to one requested product.
type DownloadRecord struct {
	DataURI   string         `json:"data_uri" yaml:"data_uri"`
	LocalPath string         `json:"local_path" yaml:"local_path"`
	Status    DownloadStatus `json:"status" yaml:"status"`
	Message   string         `json:"message,omitempty" yaml:"message,omitempty"`
	Size      int64          `json:"size" yaml:"size"`
	URL       string         `json:"url,omitempty" yaml:"url,omitempty"`
}
