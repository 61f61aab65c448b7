package common

// Item properties
const (
	TagDatetime           = "datetime"
	TagStartDatetime      = "start_datetime"
	TagEndDatetime        = "end_datetime"
	TagCreator            = "creator"
	TagProcessingLevel    = "processing:level"
	TagPlatformDesignator = "sat:platform_international_designator"
	TagSeason             = "opencosmos:season"
	TagProductType        = "opencosmos:product_type"
	TagMission            = "opencosmos:mission_id"
	TagLicense            = "license"
)

// Link relations
const (
	RelSelf       = "self"
	RelParent     = "parent"
	RelCollection = "collection"
	RelRoot       = "root"
	RelNext       = "next"
	RelLicense    = "license"
)

// Asset roles
const (
	RoleData      = "data"
	RoleMetadata  = "metadata"
	RoleThumbnail = "thumbnail"
	RoleOverview  = "overview"
)
