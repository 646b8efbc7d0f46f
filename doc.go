// Package omfile reads and writes OM files: self-describing, chunked,
// compressed containers for multi-dimensional numeric arrays.
//
// An OM file holds a tree of variables. Array variables are split into
// fixed-shape chunks, each compressed independently, so any sub-region can
// be read by fetching only the chunks it touches. Scalar variables
// (attributes) hold a single value. The format is append-only: a file is
// written once, finalized, and immutable afterwards.
//
// # Writing
//
//	w, _ := omfile.Create("weather.om")
//	aw, _ := omfile.NewArrayWriter[float32](w, []uint64{3600, 1801}, []uint64{64, 64}, omfile.ArrayOptions{
//		Compression: format.CompressionPforDelta2dInt16,
//		ScaleFactor: 20,
//	})
//	_ = aw.WriteData(temperatures)
//	temp, _ := aw.Finalize("temperature_2m")
//	unit, _ := w.WriteScalar("celsius", "unit")
//	root, _ := w.WriteScalar(int64(1), "root", temp, unit)
//	_ = w.Finalize(root)
//
// # Reading
//
//	r, _ := omfile.Open("weather.om")
//	defer r.Close()
//	arr, _ := omfile.Read[float32](ctx, r, omfile.Sel(omfile.Range(100, 200), omfile.At(450)))
//
// Remote files work the same way through a range-read backend:
//
//	b, _ := s3.Open(ctx, "my-bucket", "weather.om", s3.Options{})
//	cached, _ := backend.NewCaching(b, 64<<20, 0)
//	r, _ := omfile.NewReader(ctx, cached)
//
// Chunk reads within one selection target disjoint output regions and run
// concurrently; results are deterministic regardless of completion order.
package omfile
