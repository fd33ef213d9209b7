package render

import (
	"fmt"
	"image"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/kvistgaard/meshpreview/internal/logger"
	"github.com/kvistgaard/meshpreview/internal/scene"
)

const glVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec3 aColor;

uniform mat4 uView;
uniform mat4 uProj;

out vec3 vNormal;
out vec3 vColor;

void main() {
	gl_Position = uProj * uView * vec4(aPos, 1.0);
	vNormal = aNormal;
	vColor = aColor;
}
`

const glFragmentShader = `
#version 410 core

in vec3 vNormal;
in vec3 vColor;

uniform vec3 uLightDir[3];
uniform float uLightIntensity[3];

out vec4 FragColor;

void main() {
	vec3 n = normalize(vNormal);
	float shade = 0.25;
	for (int i = 0; i < 3; i++) {
		shade += uLightIntensity[i] * abs(dot(n, uLightDir[i]));
	}
	FragColor = vec4(vColor * min(shade, 1.0), 1.0);
}
`

// GLRenderer renders scenes through an offscreen OpenGL framebuffer backed
// by a hidden SDL window.
type GLRenderer struct {
	ctx     *glContext
	program uint32

	locView           int32
	locProj           int32
	locLightDir       int32
	locLightIntensity int32
}

// NewGL brings up the GL backend. A *BackendInitError is returned when no
// context can be created (headless host without GL). All GL and SDL work
// happens on the render thread, so renderers may be owned by any
// goroutine.
func NewGL() (*GLRenderer, error) {
	r := &GLRenderer{}
	var initErr error
	glThread.do(func() {
		ctx, err := newGLContext()
		if err != nil {
			initErr = err
			return
		}

		if err := gl.Init(); err != nil {
			ctx.destroy()
			initErr = fmt.Errorf("gl.Init: %w", err)
			return
		}

		logger.Info("OpenGL backend initialized",
			zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
			zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		)

		program, err := compileProgram(glVertexShader, glFragmentShader)
		if err != nil {
			ctx.destroy()
			initErr = err
			return
		}

		r.ctx = ctx
		r.program = program
		r.locView = uniform(program, "uView")
		r.locProj = uniform(program, "uProj")
		r.locLightDir = uniform(program, "uLightDir")
		r.locLightIntensity = uniform(program, "uLightIntensity")

		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
	})
	if initErr != nil {
		return nil, &BackendInitError{Backend: BackendGL, Err: initErr}
	}
	return r, nil
}

// Close releases the shader program and GL context.
func (r *GLRenderer) Close() {
	glThread.do(func() {
		if r.ctx == nil {
			return
		}
		if r.program != 0 {
			if r.ctx.makeCurrent() == nil {
				gl.DeleteProgram(r.program)
			}
			r.program = 0
		}
		r.ctx.destroy()
		r.ctx = nil
	})
}

// Render draws the scene into a fresh FBO and reads the pixels back.
func (r *GLRenderer) Render(s *scene.Scene, width, height int) (*image.RGBA, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid viewport %dx%d", width, height)
	}

	var (
		img *image.RGBA
		err error
	)
	glThread.do(func() {
		img, err = r.draw(s, width, height)
	})
	return img, err
}

// draw runs on the render thread.
func (r *GLRenderer) draw(s *scene.Scene, width, height int) (*image.RGBA, error) {
	if r.ctx == nil {
		return nil, fmt.Errorf("renderer is closed")
	}
	if err := r.ctx.makeCurrent(); err != nil {
		return nil, fmt.Errorf("making context current: %w", err)
	}

	fbo, colorTex, depthRBO, err := createFramebuffer(int32(width), int32(height))
	if err != nil {
		return nil, err
	}
	defer func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &colorTex)
		gl.DeleteRenderbuffers(1, &depthRBO)
	}()

	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(s.Background.X, s.Background.Y, s.Background.Z, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	vao, vbo, vertexCount := uploadMesh(s)
	defer func() {
		gl.DeleteBuffers(1, &vbo)
		gl.DeleteVertexArrays(1, &vao)
	}()

	gl.UseProgram(r.program)

	view := s.Camera.View
	proj := s.Camera.Projection()
	gl.UniformMatrix4fv(r.locView, 1, false, view.Ptr())
	gl.UniformMatrix4fv(r.locProj, 1, false, proj.Ptr())

	var dirs [9]float32
	var intensities [3]float32
	for i, l := range s.Lights {
		dirs[i*3] = l.Direction.X
		dirs[i*3+1] = l.Direction.Y
		dirs[i*3+2] = l.Direction.Z
		intensities[i] = l.Intensity
	}
	gl.Uniform3fv(r.locLightDir, 3, &dirs[0])
	gl.Uniform1fv(r.locLightIntensity, 3, &intensities[0])

	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLES, 0, vertexCount)
	gl.BindVertexArray(0)

	// Read back and flip: GL rows start at the bottom.
	pixels := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// uploadMesh flattens the indexed mesh into an interleaved
// position/normal/color vertex buffer with per-face normals.
func uploadMesh(s *scene.Scene) (vao, vbo uint32, vertexCount int32) {
	verts := make([]float32, 0, len(s.Mesh.Triangles)*3*9)
	for _, tri := range s.Mesh.Triangles {
		p0 := s.Mesh.Positions[tri[0]]
		p1 := s.Mesh.Positions[tri[1]]
		p2 := s.Mesh.Positions[tri[2]]
		n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()

		for _, vi := range tri {
			p := s.Mesh.Positions[vi]
			c := s.VertexColor(vi)
			verts = append(verts, p.X, p.Y, p.Z, n.X, n.Y, n.Z, c.X, c.Y, c.Z)
		}
	}
	vertexCount = int32(len(verts) / 9)

	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(verts) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, unsafe.Pointer(&verts[0]), gl.STATIC_DRAW)
	}

	stride := int32(9 * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 3, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return vao, vbo, vertexCount
}

func createFramebuffer(width, height int32) (fbo, colorTex, depthRBO uint32, err error) {
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)

	gl.GenTextures(1, &colorTex)
	gl.BindTexture(gl.TEXTURE_2D, colorTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, colorTex, 0)

	gl.GenRenderbuffers(1, &depthRBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, depthRBO)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, depthRBO)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &colorTex)
		gl.DeleteRenderbuffers(1, &depthRBO)
		return 0, 0, 0, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return fbo, colorTex, depthRBO, nil
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vert, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(infoLog))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", infoLog)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, infoLog)
	}
	return shader, nil
}

func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
