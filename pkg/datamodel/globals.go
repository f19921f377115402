package datamodel

// Global attribute IDs are present on every cluster instance.
const (
	// GlobalAttrClusterRevision (0xFFFD) indicates the cluster revision.
	GlobalAttrClusterRevision AttributeID = 0xFFFD

	// GlobalAttrFeatureMap (0xFFFC) indicates supported optional features.
	GlobalAttrFeatureMap AttributeID = 0xFFFC

	// GlobalAttrAttributeList (0xFFFB) lists all supported attribute IDs.
	GlobalAttrAttributeList AttributeID = 0xFFFB

	// GlobalAttrAcceptedCommandList (0xFFF9) lists accepted command IDs.
	GlobalAttrAcceptedCommandList AttributeID = 0xFFF9

	// GlobalAttrGeneratedCommandList (0xFFF8) lists generated command IDs.
	GlobalAttrGeneratedCommandList AttributeID = 0xFFF8
)

// GlobalAttributes lists the global attributes in the order they are read
// by a metadata sweep.
var GlobalAttributes = []AttributeID{
	GlobalAttrClusterRevision,
	GlobalAttrFeatureMap,
	GlobalAttrAttributeList,
	GlobalAttrAcceptedCommandList,
	GlobalAttrGeneratedCommandList,
}

// IsGlobalAttribute returns true if the attribute ID is a global attribute.
func IsGlobalAttribute(id AttributeID) bool {
	return id >= GlobalAttrGeneratedCommandList && id <= GlobalAttrClusterRevision
}

// GlobalAttributeName returns the name of a global attribute, or "" if the
// ID is not global.
func GlobalAttributeName(id AttributeID) string {
	switch id {
	case GlobalAttrClusterRevision:
		return "ClusterRevision"
	case GlobalAttrFeatureMap:
		return "FeatureMap"
	case GlobalAttrAttributeList:
		return "AttributeList"
	case GlobalAttrAcceptedCommandList:
		return "AcceptedCommandList"
	case GlobalAttrGeneratedCommandList:
		return "GeneratedCommandList"
	default:
		return ""
	}
}
