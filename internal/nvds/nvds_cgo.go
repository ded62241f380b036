//go:build deepstream

package nvds

/*
#cgo CFLAGS: -I/opt/nvidia/deepstream/deepstream/sources/includes
#cgo pkg-config: gstreamer-1.0
#cgo LDFLAGS: -L/opt/nvidia/deepstream/deepstream/lib -lnvdsgst_meta -lnvds_meta

#include <gst/gst.h>
#include "gstnvdsmeta.h"
#include "nvdsmeta.h"

typedef struct {
	gint frame_num;
	guint source_id;
	guint batch_id;
	guint num_objects;
} fd_frame;

typedef struct {
	gint frame_index;
	gint class_id;
	guint64 object_id;
	gfloat confidence;
	gfloat left, top, width, height;
	char label[MAX_LABEL_SIZE];
} fd_object;

static int fd_count(GstBuffer *buf, int *nframes, int *nobjects) {
	NvDsBatchMeta *batch = gst_buffer_get_nvds_batch_meta(buf);
	if (batch == NULL) {
		return -1;
	}
	*nframes = 0;
	*nobjects = 0;
	for (NvDsMetaList *l = batch->frame_meta_list; l != NULL; l = l->next) {
		NvDsFrameMeta *fm = (NvDsFrameMeta *)l->data;
		(*nframes)++;
		for (NvDsMetaList *o = fm->obj_meta_list; o != NULL; o = o->next) {
			(*nobjects)++;
		}
	}
	return 0;
}

static void fd_copy(GstBuffer *buf, fd_frame *frames, fd_object *objects) {
	NvDsBatchMeta *batch = gst_buffer_get_nvds_batch_meta(buf);
	int fi = 0, oi = 0;
	for (NvDsMetaList *l = batch->frame_meta_list; l != NULL; l = l->next, fi++) {
		NvDsFrameMeta *fm = (NvDsFrameMeta *)l->data;
		frames[fi].frame_num = fm->frame_num;
		frames[fi].source_id = fm->source_id;
		frames[fi].batch_id = fm->batch_id;
		frames[fi].num_objects = fm->num_obj_meta;
		for (NvDsMetaList *o = fm->obj_meta_list; o != NULL; o = o->next, oi++) {
			NvDsObjectMeta *om = (NvDsObjectMeta *)o->data;
			objects[oi].frame_index = fi;
			objects[oi].class_id = om->class_id;
			objects[oi].object_id = om->object_id;
			objects[oi].confidence = om->confidence;
			objects[oi].left = om->rect_params.left;
			objects[oi].top = om->rect_params.top;
			objects[oi].width = om->rect_params.width;
			objects[oi].height = om->rect_params.height;
			g_strlcpy(objects[oi].label, om->obj_label, MAX_LABEL_SIZE);
		}
	}
}
*/
import "C"

import "unsafe"

// Available reports whether the metadata bindings are compiled in
func Available() bool { return true }

// ReadBatch copies the frame and object metadata attached to buffer.
//
// buffer must be a *GstBuffer that passed through nvstreammux. The metadata
// lists are walked twice under the buffer's lifetime: once to size, once to copy.
func ReadBatch(buffer unsafe.Pointer) (Batch, error) {
	if buffer == nil {
		return Batch{}, ErrNoBatchMeta
	}
	buf := (*C.GstBuffer)(buffer)

	var nframes, nobjects C.int
	if C.fd_count(buf, &nframes, &nobjects) != 0 {
		return Batch{}, ErrNoBatchMeta
	}
	if nframes == 0 {
		return Batch{}, nil
	}

	frames := make([]C.fd_frame, int(nframes))
	objects := make([]C.fd_object, int(nobjects)+1)
	C.fd_copy(buf, &frames[0], &objects[0])

	batch := Batch{Frames: make([]FrameMeta, len(frames))}
	for i, f := range frames {
		batch.Frames[i] = FrameMeta{
			FrameNum:   int(f.frame_num),
			SourceID:   uint32(f.source_id),
			BatchID:    uint32(f.batch_id),
			NumObjects: int(f.num_objects),
		}
	}
	for _, o := range objects[:int(nobjects)] {
		fm := &batch.Frames[int(o.frame_index)]
		fm.Objects = append(fm.Objects, ObjectMeta{
			ClassID:    int(o.class_id),
			ObjectID:   uint64(o.object_id),
			Confidence: float32(o.confidence),
			Label:      C.GoString(&o.label[0]),
			Rect: Rect{
				Left:   float32(o.left),
				Top:    float32(o.top),
				Width:  float32(o.width),
				Height: float32(o.height),
			},
		})
	}
	return batch, nil
}
