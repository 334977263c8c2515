package irtrack

import "gonum.org/v1/gonum/mat"

// ComputeRigidTransform finds the least-squares rotation and translation
// mapping src onto dst. The two lists must already be paired index-for-index.
// On mismatched lengths, or fewer than three pairs, or a failed
// decomposition, it returns the identity transform; callers treat identity
// under those conditions as a failure sentinel rather than a valid pose.
//
// This is the SVD method: centre both sets, build the cross-covariance
// H = Dᵗ·S, decompose H = U·Σ·Vᵗ, and take R = U·Vᵗ. A negative determinant
// means the best orthogonal map is a reflection; negating the last row of Vᵗ
// forces a proper rotation.
func ComputeRigidTransform(src, dst []Vec3) Mat4 {
	identity := Identity4()
	if len(src) != len(dst) || len(src) < 3 {
		return identity
	}

	n := len(src)
	var srcCentroid, dstCentroid Vec3
	for i := 0; i < n; i++ {
		srcCentroid = srcCentroid.Add(src[i])
		dstCentroid = dstCentroid.Add(dst[i])
	}
	srcCentroid = srcCentroid.Scale(1 / float64(n))
	dstCentroid = dstCentroid.Scale(1 / float64(n))

	// Zero-mean coordinate matrices, one point per row.
	S := mat.NewDense(n, 3, nil)
	D := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		s := src[i].Sub(srcCentroid)
		d := dst[i].Sub(dstCentroid)
		S.SetRow(i, []float64{s.X, s.Y, s.Z})
		D.SetRow(i, []float64{d.X, d.Y, d.Z})
	}

	var h mat.Dense
	h.Mul(D.T(), S)

	var svd mat.SVD
	if ok := svd.Factorize(&h, mat.SVDThin); !ok {
		return identity
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())

	if mat.Det(&r) < 0 {
		// Negate the last column of V (the last row of Vᵗ) and recompute.
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	out := Identity4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.Set(row, col, r.At(row, col))
		}
	}

	t := dstCentroid.Sub(Vec3{
		X: r.At(0, 0)*srcCentroid.X + r.At(0, 1)*srcCentroid.Y + r.At(0, 2)*srcCentroid.Z,
		Y: r.At(1, 0)*srcCentroid.X + r.At(1, 1)*srcCentroid.Y + r.At(1, 2)*srcCentroid.Z,
		Z: r.At(2, 0)*srcCentroid.X + r.At(2, 1)*srcCentroid.Y + r.At(2, 2)*srcCentroid.Z,
	})
	out.Set(0, 3, t.X)
	out.Set(1, 3, t.Y)
	out.Set(2, 3, t.Z)

	return out
}
