package irtrack

// UnprojectFunc maps a pixel coordinate (u, v) to a direction on the camera
// unit plane (x, y, 1). It mirrors the sensor runtime's unprojection call,
// which can legitimately fail for individual pixels; ok=false means the
// caller should skip the pixel, not that anything is wrong.
type UnprojectFunc func(u, v float64) (x, y float64, ok bool)

// InfraBlob is one validated marker candidate, frame-scoped: there is no
// identity carried between frames.
type InfraBlob struct {
	Pixel PixelPoint // 2D location in the AB image, kept for annotation
	Depth Vec3       // 3D location in the depth-sensor frame, metres
	World Vec3       // 3D location in the world frame, metres
}

// ValidateBlobs lifts candidate 2D centroids into 3D. Each pixel is depth-
// sampled bilinearly; candidates with sentinel depth (0 or > MaxValidRawDepth
// raw units), out-of-bounds coordinates, or a failed unprojection are dropped
// silently. Surviving candidates are scaled to metres in the sensor frame and
// transformed into the world frame.
func ValidateBlobs(depth *Image16, depthToWorld Mat4, pixels []PixelPoint, unproject UnprojectFunc) []InfraBlob {
	if unproject == nil {
		return nil
	}

	blobs := make([]InfraBlob, 0, len(pixels))
	for _, px := range pixels {
		raw, ok := depth.BilinearAt(px)
		if !ok {
			continue
		}
		if raw == 0 || raw > MaxValidRawDepth {
			continue
		}

		x, y, ok := unproject(px.X, px.Y)
		if !ok {
			continue
		}

		// Unit-plane direction scaled along the ray to the metric depth.
		dir := Vec3{X: x, Y: y, Z: 1}.Normalize()
		inDepth := dir.Scale(raw / 1000.0)
		inWorld := depthToWorld.Apply(inDepth)

		blobs = append(blobs, InfraBlob{Pixel: px, Depth: inDepth, World: inWorld})
	}
	return blobs
}
