// Package shader provides OpenGL shader compilation and linking.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Link compiles both stages, links them, and resolves each named uniform once.
// A uniform that the linker optimized away or that does not exist is an error.
func Link(vertexSrc, fragmentSrc string, uniforms ...string) (uint32, map[string]int32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, nil, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, nil, err
	}
	defer gl.DeleteShader(fragShader)

	id := gl.CreateProgram()
	if id == 0 {
		return 0, nil, fmt.Errorf("glCreateProgram returned 0")
	}
	gl.AttachShader(id, vertShader)
	gl.AttachShader(id, fragShader)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := programLog(id)
		gl.DeleteProgram(id)
		return 0, nil, fmt.Errorf("link: %s", log)
	}

	locations := make(map[string]int32, len(uniforms))
	for _, name := range uniforms {
		loc := gl.GetUniformLocation(id, gl.Str(name+"\x00"))
		if loc < 0 {
			gl.DeleteProgram(id)
			return 0, nil, fmt.Errorf("uniform %q not found in program %d", name, id)
		}
		locations[name] = loc
	}

	return id, locations, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	if shader == 0 {
		return 0, fmt.Errorf("%s shader: glCreateShader returned 0", name)
	}
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log[:logLen]))
	}

	return shader, nil
}

func programLog(id uint32) string {
	var logLen int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLen)
	log := make([]byte, logLen+1)
	gl.GetProgramInfoLog(id, logLen, nil, &log[0])
	return string(log[:logLen])
}
