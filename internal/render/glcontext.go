package render

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

// sdlVideoRefs counts live GL contexts. Touched only on the render
// thread. SDL video comes up with the first context and goes down with
// the last one; quitting earlier would pull the window out from under
// another renderer's context.
var sdlVideoRefs int

// glContext owns a hidden SDL window whose sole purpose is to provide an
// OpenGL context for offscreen framebuffer rendering. All methods must run
// on the render thread.
type glContext struct {
	window  *sdl.Window
	context sdl.GLContext
}

// newGLContext creates a hidden window with a 4.1 core profile context,
// initializing SDL video if this is the first context.
func newGLContext() (*glContext, error) {
	if sdlVideoRefs == 0 {
		if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
			return nil, fmt.Errorf("SDL_Init failed: %w", err)
		}
	}

	// Context attributes must be set before window creation.
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)

	window, err := sdl.CreateWindow(
		"meshpreview-offscreen",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		64, 64,
		sdl.WINDOW_OPENGL|sdl.WINDOW_HIDDEN,
	)
	if err != nil {
		if sdlVideoRefs == 0 {
			sdl.Quit()
		}
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	context, err := window.GLCreateContext()
	if err != nil {
		window.Destroy()
		if sdlVideoRefs == 0 {
			sdl.Quit()
		}
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	sdlVideoRefs++
	return &glContext{window: window, context: context}, nil
}

// makeCurrent binds the context to the render thread. Needed before every
// batch of GL calls: another renderer may have been current in between.
func (c *glContext) makeCurrent() error {
	return c.window.GLMakeCurrent(c.context)
}

// destroy tears down the context and window, and SDL video with the last
// context.
func (c *glContext) destroy() {
	if c.window == nil && c.context == nil {
		return
	}
	if c.context != nil {
		sdl.GLDeleteContext(c.context)
		c.context = nil
	}
	if c.window != nil {
		c.window.Destroy()
		c.window = nil
	}
	sdlVideoRefs--
	if sdlVideoRefs == 0 {
		sdl.Quit()
	}
}
