package repository

import "fmt"

// Canonical path layout of a project inside its remote repository. The
// in-memory graph is a cache; these files are the durable representation
// and must be sufficient to rebuild it.
//
//	architectai.json
//	versions/<version-id>/version.json
//	versions/<version-id>/diagrams/<diagram-id>.png
//	versions/<version-id>/refined/refined.png
//	specs/latest-specs.json
//	specs/v<sequenceNumber>.md
const (
	projectMetaPath = "architectai.json"
	versionsDir     = "versions"
	latestSpecsPath = "specs/latest-specs.json"

	versionMetaName = "version.json"
	refinedFileName = "refined.png"

	// DiscoveryTopic tags project repositories so the open-project picker
	// can find them.
	DiscoveryTopic = "architectai-project"
)

func versionDir(versionID string) string {
	return versionsDir + "/" + versionID
}

func versionMetaPath(versionID string) string {
	return versionDir(versionID) + "/" + versionMetaName
}

func diagramPath(versionID, diagramID string) string {
	return versionDir(versionID) + "/diagrams/" + diagramID + ".png"
}

func diagramFileName(diagramID string) string {
	return diagramID + ".png"
}

func refinedPath(versionID string) string {
	return versionDir(versionID) + "/refined/" + refinedFileName
}

func planPath(sequenceNumber int) string {
	return fmt.Sprintf("specs/v%d.md", sequenceNumber)
}
