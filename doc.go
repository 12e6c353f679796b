/*
go-targettrack provides a single-target visual tracking continuity engine
for follow-style applications such as drones and PTZ cameras.  It takes the
noisy per-frame detection stream of an external object detector (bounding
boxes, class labels and ephemeral track ids) and turns it into a stable,
continuously available target position that survives detector id churn,
brief occlusions and multi-second disappearances.

The tracker package contains the continuity engine itself, the appearance
package contains the re-identification feature model used for long-horizon
recovery, and the render package draws diagnostic overlays.

See example code and usage in the example subdirectory.
*/
package targettrack
