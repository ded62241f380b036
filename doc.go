// Package facedetection runs a DeepStream face detection pipeline from Go.
//
// A Runner builds the element chain described by a config.Config,
//
//	source → nvstreammux → nvinfer → nvvideoconvert → nvdsosd → sink
//
// plays it until the context is cancelled or the pipeline stops, and reports
// detected faces from a buffer probe on the overlay's sink pad.
//
// # Quick Start
//
//	cfg, _ := config.Profile("console")
//	r, err := facedetection.NewRunner(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    for ev := range r.Detections() {
//	        log.Printf("frame %d: %d faces", ev.FrameNum, ev.Total)
//	    }
//	}()
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	if err := r.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Probe modes
//
//   - count: prints "Processing frame N" every report_every buffers
//   - metadata: prints per-face bounding boxes from NvDsBatchMeta
//     (needs the deepstream build tag)
//   - auto: metadata when available, otherwise count
//
// # Requirements
//
// GStreamer 1.x and the DeepStream SDK plugins (nvstreammux, nvinfer,
// nvvideoconvert, nvdsosd) must be installed. Run `face-detect check`
// to verify the environment.
package facedetection
